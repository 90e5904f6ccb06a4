package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app"
	"github.com/ikkim/storefront-backend/internal/db"
)

func main() {
	export := flag.Bool("export", false, "write the catalog to the given file instead of importing it")
	yes := flag.Bool("y", false, "skip the confirmation prompt")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("Usage: go run cmd/seed/main.go [-export] [-y] <xlsx_file_path>")
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	server, err := app.NewServer(app.Deps{DB: db.GetDB(), Config: cfg})
	if err != nil {
		log.Fatal("Failed to build services:", err)
	}

	if *export {
		f, err := os.Create(filePath)
		if err != nil {
			log.Fatal("Failed to create file:", err)
		}
		defer f.Close()
		if err := server.Products.ExportXLSX(f); err != nil {
			log.Fatal("Failed to export catalog:", err)
		}
		fmt.Printf("Catalog exported to %s\n", filePath)
		return
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open file:", err)
	}
	defer f.Close()

	if !*yes {
		fmt.Printf("Import products from %s? (yes/no): ", filePath)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	result, err := server.Products.ImportXLSX(context.Background(), f)
	if err != nil {
		log.Fatal("Failed to import catalog:", err)
	}

	fmt.Println("Import completed.")
	fmt.Printf("Imported: %d, failed: %d\n", result.SuccessCount, result.FailureCount)
	if len(result.Errors) > 0 {
		fmt.Println(strings.Join(result.Errors, "\n"))
	}
}
