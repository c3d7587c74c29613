package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/structure"
)

// column is a resolved attribute reference: the SQL column and the type
// its values decode with.
type column struct {
	id       string
	sql      string
	dataType structure.DataType
}

func resolveColumns(level *structure.Level, ids []string) ([]column, error) {
	out := make([]column, 0, len(ids))
	for _, id := range ids {
		c, err := resolveColumn(level, id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func resolveColumn(level *structure.Level, id string) (column, error) {
	if id == "" {
		return column{sql: "xtext", dataType: level.DataType}, nil
	}
	a, ok := level.Attribute(id)
	if !ok {
		return column{}, corpuserr.NotFound("attribute", level.ID+"."+id)
	}
	return column{id: id, sql: quoteIdent(id), dataType: a.DataType}, nil
}

func blank(v any) bool {
	s, ok := v.(string)
	return v == nil || (ok && s == "")
}

// DistinctLabels groups a level by the given attributes (the label when none
// are named) and counts elements per group, ordered by the grouped values.
func (s *Store) DistinctLabels(ctx context.Context, levelID string, attributeIDs ...string) ([]datastore.LabelCount, error) {
	level, err := s.level(levelID)
	if err != nil {
		return nil, corpuserr.WithOp("distinct labels", err)
	}
	if len(attributeIDs) == 0 {
		attributeIDs = []string{""}
	}
	cols, err := resolveColumns(level, attributeIDs)
	if err != nil {
		return nil, corpuserr.WithOp("distinct labels", err)
	}
	names := columnList(cols)
	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM %[2]s GROUP BY %[1]s ORDER BY %[1]s", names, tableName(level.ID))
	counts, err := s.queryCounts(ctx, cols, query)
	if err != nil {
		return nil, corpuserr.WithOp("distinct labels", err)
	}
	return counts, nil
}

// BatchUpdate sets attributeID ("" is the label) to value on every element
// matching all criteria. Values are converted to the declared types first.
func (s *Store) BatchUpdate(ctx context.Context, levelID, attributeID string, value any, criteria ...datastore.Criterion) (int64, error) {
	ctx = ensureContext(ctx)
	level, err := s.level(levelID)
	if err != nil {
		return 0, corpuserr.WithOp("batch update", err)
	}
	target, err := resolveColumn(level, attributeID)
	if err != nil {
		return 0, corpuserr.WithOp("batch update", err)
	}
	v, err := target.dataType.Coerce(value)
	if err != nil {
		return 0, corpuserr.WithOp("batch update", err)
	}
	if target.id == "" && blank(v) {
		v = nil
	}
	args := []any{toSQL(v)}
	var where []string
	for _, c := range criteria {
		col, err := resolveColumn(level, c.AttributeID)
		if err != nil {
			return 0, corpuserr.WithOp("batch update", err)
		}
		cv, err := col.dataType.Coerce(c.Value)
		if err != nil {
			return 0, corpuserr.WithOp("batch update", err)
		}
		// Blank labels are stored as NULL; older rows may still hold ''.
		if col.id == "" && blank(cv) {
			where = append(where, "("+col.sql+" IS NULL OR "+col.sql+" = '')")
			continue
		}
		if cv == nil {
			where = append(where, col.sql+" IS NULL")
			continue
		}
		where = append(where, col.sql+" = ?")
		args = append(args, toSQL(cv))
	}
	query := fmt.Sprintf("UPDATE %s SET %s = ?", tableName(level.ID), target.sql)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	var affected int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, corpuserr.IO("batch update", err)
	}
	return affected, nil
}

// CountItems counts elements of a level, grouped by opts.GroupBy. Without
// grouping it returns one total whose exclusions apply to the label.
func (s *Store) CountItems(ctx context.Context, levelID string, opts datastore.CountOptions) ([]datastore.LabelCount, error) {
	level, err := s.level(levelID)
	if err != nil {
		return nil, corpuserr.WithOp("count items", err)
	}
	filterIDs := opts.GroupBy
	if len(filterIDs) == 0 {
		filterIDs = []string{""}
	}
	filters, err := resolveColumns(level, filterIDs)
	if err != nil {
		return nil, corpuserr.WithOp("count items", err)
	}

	var (
		where []string
		args  []any
	)
	for _, c := range filters {
		if opts.ExcludeNull {
			where = append(where, c.sql+" IS NOT NULL")
		}
		if len(opts.ExcludeValues) > 0 {
			where = append(where, fmt.Sprintf("(%[1]s IS NULL OR %[1]s NOT IN (%[2]s))", c.sql, placeholders(len(opts.ExcludeValues))))
			for _, v := range opts.ExcludeValues {
				args = append(args, v)
			}
		}
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	if len(opts.GroupBy) == 0 {
		var n int64
		row := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM "+tableName(level.ID)+whereSQL, args...)
		if err := row.Scan(&n); err != nil {
			return nil, corpuserr.IO("count items", err)
		}
		return []datastore.LabelCount{{Count: n}}, nil
	}

	names := columnList(filters)
	query := fmt.Sprintf("SELECT %[1]s, COUNT(*) FROM %[2]s%[3]s GROUP BY %[1]s ORDER BY COUNT(*) DESC, %[1]s",
		names, tableName(level.ID), whereSQL)
	counts, err := s.queryCounts(ctx, filters, query, args...)
	if err != nil {
		return nil, corpuserr.WithOp("count items", err)
	}
	return counts, nil
}

func columnList(cols []column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.sql
	}
	return strings.Join(names, ", ")
}

func (s *Store) queryCounts(ctx context.Context, cols []column, query string, args ...any) ([]datastore.LabelCount, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, corpuserr.IO("aggregate", err)
	}
	defer rows.Close()
	var out []datastore.LabelCount
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, 0, len(cols)+1)
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		var n int64
		dest = append(dest, &n)
		if err := rows.Scan(dest...); err != nil {
			return nil, corpuserr.IO("aggregate", err)
		}
		values := make([]any, len(cols))
		for i, c := range cols {
			v, err := c.dataType.Coerce(raw[i])
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		out = append(out, datastore.LabelCount{Values: values, Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, corpuserr.IO("aggregate", err)
	}
	return out, nil
}
