package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"annotcore/internal/structure"
)

const levelTablePrefix = "lvl_"

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func tableName(levelID string) string { return quoteIdent(levelTablePrefix + levelID) }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// labelColumn maps an attribute ID onto its column; "" is the label.
func labelColumn(attributeID string) string {
	if attributeID == "" {
		return "xtext"
	}
	return quoteIdent(attributeID)
}

// positionColumns returns the two columns locating an element of level.
func positionColumns(level *structure.Level) (string, string) {
	if level.Kind.NeedsParent() {
		return "index_from", "index_to"
	}
	return "t_min", "t_max"
}

func createLevelTableSQL(level *structure.Level) string {
	from, to := positionColumns(level)
	cols := []string{
		"annotation_id TEXT NOT NULL",
		"speaker_id TEXT NOT NULL",
		"item_no INTEGER NOT NULL",
		from + " INTEGER NOT NULL",
		to + " INTEGER NOT NULL",
		"xtext " + level.DataType.SQLType(),
	}
	for _, a := range level.Attributes {
		cols = append(cols, quoteIdent(a.ID)+" "+a.DataType.SQLType())
	}
	cols = append(cols, "PRIMARY KEY (annotation_id, speaker_id, item_no)")
	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n)", tableName(level.ID), strings.Join(cols, ",\n    "))
}

// rebuildIndexes drops every explicit index on a level table and creates the
// ones the level currently declares. Index names embed level and attribute
// IDs, so renames go through here.
func rebuildIndexes(ctx context.Context, tx *sql.Tx, level *structure.Level) error {
	if err := dropIndexes(ctx, tx, level.ID); err != nil {
		return err
	}
	return createIndexes(ctx, tx, level)
}

func dropIndexes(ctx context.Context, tx *sql.Tx, levelID string) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL",
		levelTablePrefix+levelID)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan index name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("list indexes: %w", err)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "DROP INDEX "+quoteIdent(name)); err != nil {
			return fmt.Errorf("drop index %s: %w", name, err)
		}
	}
	return nil
}

func createIndexes(ctx context.Context, tx *sql.Tx, level *structure.Level) error {
	from, _ := positionColumns(level)
	stmts := []string{
		fmt.Sprintf("CREATE INDEX %s ON %s (annotation_id, speaker_id, %s)",
			quoteIdent("idx_"+levelTablePrefix+level.ID+"_pos"), tableName(level.ID), from),
	}
	if level.Indexed {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (xtext)",
			quoteIdent("idx_"+levelTablePrefix+level.ID+"__xtext"), tableName(level.ID)))
	}
	for _, a := range level.Attributes {
		if !a.Indexed {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			quoteIdent("idx_"+levelTablePrefix+level.ID+"__"+a.ID), tableName(level.ID), quoteIdent(a.ID)))
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on level %s: %w", level.ID, err)
		}
	}
	return nil
}

// readStructure loads the level declarations from the meta tables.
func (s *Store) readStructure(ctx context.Context) (*structure.AnnotationStructure, error) {
	ctx = ensureContext(ctx)
	levelRows, err := s.db.QueryContext(ctx, `SELECT level_id, level_type, COALESCE(parent_level_id, ''),
		COALESCE(name, ''), COALESCE(description, ''), datatype, length, is_indexed, COALESCE(name_value_list, '')
		FROM annotation_levels ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	var levels []*structure.Level
	byID := map[string]*structure.Level{}
	for levelRows.Next() {
		var (
			l                  structure.Level
			kind, base         string
			precision, indexed int
		)
		if err := levelRows.Scan(&l.ID, &kind, &l.ParentLevelID, &l.Name, &l.Description,
			&base, &precision, &indexed, &l.NameValueList); err != nil {
			levelRows.Close()
			return nil, fmt.Errorf("scan level: %w", err)
		}
		if l.Kind, err = structure.ParseLevelKind(kind); err != nil {
			levelRows.Close()
			return nil, err
		}
		if l.DataType, err = structure.ParseDataType(base, precision); err != nil {
			levelRows.Close()
			return nil, err
		}
		l.Indexed = indexed != 0
		levels = append(levels, &l)
		byID[l.ID] = &l
	}
	if err := levelRows.Err(); err != nil {
		levelRows.Close()
		return nil, fmt.Errorf("read levels: %w", err)
	}
	if err := levelRows.Close(); err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}

	attrRows, err := s.db.QueryContext(ctx, `SELECT level_id, attribute_id, COALESCE(name, ''), COALESCE(description, ''),
		datatype, length, is_indexed, COALESCE(name_value_list, ''), COALESCE(stat_level_of_measurement, '')
		FROM annotation_attributes ORDER BY level_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer attrRows.Close()
	for attrRows.Next() {
		var (
			levelID, base      string
			precision, indexed int
			a                  structure.Attribute
		)
		if err := attrRows.Scan(&levelID, &a.ID, &a.Name, &a.Description, &base, &precision, &indexed,
			&a.NameValueList, &a.StatLevelOfMeasurement); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		if a.DataType, err = structure.ParseDataType(base, precision); err != nil {
			return nil, err
		}
		a.Indexed = indexed != 0
		if l, ok := byID[levelID]; ok {
			l.Attributes = append(l.Attributes, &a)
		}
	}
	if err := attrRows.Err(); err != nil {
		return nil, fmt.Errorf("read attributes: %w", err)
	}
	return structure.New(levels...)
}

// writeStructure replaces the meta table contents with st.
func writeStructure(ctx context.Context, tx *sql.Tx, st *structure.AnnotationStructure) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM annotation_attributes"); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM annotation_levels"); err != nil {
		return fmt.Errorf("clear levels: %w", err)
	}
	for pos, l := range st.Levels() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO annotation_levels
			(level_id, position, level_type, parent_level_id, name, description, datatype, length, is_indexed, name_value_list)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, pos, string(l.Kind), nullString(l.ParentLevelID), l.Name, l.Description,
			string(baseOf(l.DataType)), l.DataType.Precision, boolInt(l.Indexed), l.NameValueList,
		); err != nil {
			return fmt.Errorf("insert level %s: %w", l.ID, err)
		}
		for apos, a := range l.Attributes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO annotation_attributes
				(level_id, attribute_id, position, name, description, datatype, length, is_indexed, name_value_list, stat_level_of_measurement)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ID, a.ID, apos, a.Name, a.Description, string(baseOf(a.DataType)), a.DataType.Precision,
				boolInt(a.Indexed), a.NameValueList, a.StatLevelOfMeasurement,
			); err != nil {
				return fmt.Errorf("insert attribute %s.%s: %w", l.ID, a.ID, err)
			}
		}
	}
	return nil
}

func baseOf(dt structure.DataType) structure.Base {
	if dt.Base == "" {
		return structure.Varchar
	}
	return dt.Base
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
