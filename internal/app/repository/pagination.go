package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination is a zero-based page request with an optional sort.
type Pagination struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string // asc | desc
}

func (p Pagination) normalized() Pagination {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.normalized()
	return n.Page * n.Size
}

func (p Pagination) Limit() int {
	return p.normalized().Size
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

func NewPage[T any](content []T, p Pagination, total int64) *Page[T] {
	n := p.normalized()
	if content == nil {
		content = []T{}
	}
	totalPages := int((total + int64(n.Size) - 1) / int64(n.Size))
	return &Page[T]{
		Content:       content,
		Page:          n.Page,
		Size:          n.Size,
		TotalElements: total,
		TotalPages:    totalPages,
	}
}

// MapPage converts the content of a page while keeping its counters.
func MapPage[T, U any](page *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, len(page.Content))
	for i, v := range page.Content {
		out[i] = fn(v)
	}
	return &Page[U]{
		Content:       out,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	}
}

// DeletedScope selects which rows of a soft-deletable table a query sees.
type DeletedScope int

const (
	ScopeActive DeletedScope = iota
	ScopeAll
	ScopeDeleted
)

func applyScope(query *gorm.DB, table string, scope DeletedScope) *gorm.DB {
	switch scope {
	case ScopeAll:
		return query.Unscoped()
	case ScopeDeleted:
		return query.Unscoped().Where(table + ".deleted_at IS NOT NULL")
	}
	return query
}

// orderClause resolves a client supplied sort into a whitelisted ORDER BY.
// allowed maps accepted sortBy values (both camelCase and snake_case) to SQL.
func orderClause(p Pagination, allowed map[string]string, fallback string) string {
	column, ok := allowed[p.SortBy]
	if !ok {
		column = fallback
	}
	dir := "DESC"
	if strings.EqualFold(p.SortDir, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s", column, dir)
}

// paginate counts the query, then loads one page of it into dest. The scopes
// (usually preloads) are applied to the page query only.
func paginate(query *gorm.DB, p Pagination, order string, dest interface{}, scopes ...func(*gorm.DB) *gorm.DB) (int64, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	err := query.Scopes(scopes...).Order(order).Offset(p.Offset()).Limit(p.Limit()).Find(dest).Error
	return total, err
}

// preloads adapts plain association names to a paginate scope.
func preloads(names ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, name := range names {
			db = db.Preload(name)
		}
		return db
	}
}

// likeEscape makes backslash the LIKE escape character on both Postgres and SQLite.
const likeEscape = ` ESCAPE '\'`

func likePattern(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
	return "%" + s + "%"
}
