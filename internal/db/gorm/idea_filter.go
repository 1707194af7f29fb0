// Package gorm provides GORM-based database operations for inspo.
package gorm

import (
	"strings"

	"github.com/dailyinspo/inspo/pkg/models"
)

// tagClause is one per-category tag predicate: the idea must carry a tag in
// this category with one of the listed values.
type tagClause struct {
	category string
	values   []string
}

// ideaPredicate is the structured form of an idea filter query. It is built
// independently of the storage engine and compiled to SQL afterwards, so the
// construction logic is unit-testable without a database.
type ideaPredicate struct {
	tagClauses []tagClause
	search     string
	dateFrom   int64
	dateTo     int64
}

// buildIdeaPredicate translates filter options into a predicate tree.
func buildIdeaPredicate(f models.IdeaFilters) ideaPredicate {
	p := ideaPredicate{
		search:   f.Search,
		dateFrom: f.DateFromEpoch,
		dateTo:   f.DateToEpoch,
	}

	addClause := func(category string, values []string) {
		if len(values) > 0 {
			p.tagClauses = append(p.tagClauses, tagClause{category: category, values: values})
		}
	}
	addClause(models.TagCategoryIndustry, f.Industry)
	addClause(models.TagCategoryTargetMarket, f.TargetMarket)
	addClause(models.TagCategoryComplexity, f.Complexity)
	addClause(models.TagCategoryTechnology, f.Technology)

	return p
}

// needsTagJoin reports whether the compiled query joins the tag tables.
// Without a tag filter no join occurs, so untagged ideas stay eligible and
// the query avoids the cartesian blow-up.
func (p ideaPredicate) needsTagJoin() bool {
	return len(p.tagClauses) > 0
}

// compile renders the predicate to a WHERE fragment and its arguments.
// Supplied tag categories are ORed together: an idea matches if any supplied
// category matches one of its values.
func (p ideaPredicate) compile() (where string, args []interface{}) {
	var conditions []string

	if len(p.tagClauses) > 0 {
		tagConds := make([]string, 0, len(p.tagClauses))
		for _, tc := range p.tagClauses {
			tagConds = append(tagConds,
				"(t.category = ? AND t.value IN ("+placeholders(len(tc.values))+"))")
			args = append(args, tc.category)
			for _, v := range tc.values {
				args = append(args, v)
			}
		}
		conditions = append(conditions, "("+strings.Join(tagConds, " OR ")+")")
	}

	if p.search != "" {
		pattern := "%" + p.search + "%"
		conditions = append(conditions,
			"(i.title LIKE ? OR i.summary LIKE ? OR i.description LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	if p.dateFrom > 0 {
		conditions = append(conditions, "i.generated_at_epoch >= ?")
		args = append(args, p.dateFrom)
	}
	if p.dateTo > 0 {
		conditions = append(conditions, "i.generated_at_epoch <= ?")
		args = append(args, p.dateTo)
	}

	return strings.Join(conditions, " AND "), args
}

// selectSQL compiles the full paginated query.
// Ordering is newest first with id as the stable tie-break.
func (p ideaPredicate) selectSQL(limit, offset int) (string, []interface{}) {
	query := "SELECT DISTINCT i.id, i.title, i.summary, i.description, i.supporting_logic, i.generated_at, i.generated_at_epoch FROM ideas i"
	query += p.joinSQL()

	where, args := p.compile()
	if where != "" {
		query += " WHERE " + where
	}

	query += " ORDER BY i.generated_at_epoch DESC, i.id ASC"

	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	return query, args
}

// countSQL compiles the matching count query, ignoring pagination. The
// predicate is identical to selectSQL's, so the count always agrees with
// the unpaginated result length.
func (p ideaPredicate) countSQL() (string, []interface{}) {
	query := "SELECT COUNT(DISTINCT i.id) FROM ideas i"
	query += p.joinSQL()

	where, args := p.compile()
	if where != "" {
		query += " WHERE " + where
	}
	return query, args
}

func (p ideaPredicate) joinSQL() string {
	if !p.needsTagJoin() {
		return ""
	}
	return " JOIN idea_tags it ON i.id = it.idea_id JOIN tags t ON it.tag_id = t.id"
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
