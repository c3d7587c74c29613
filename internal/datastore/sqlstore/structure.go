package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"annotcore/internal/corpuserr"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

// LoadStructure re-reads the level declarations and refreshes the cached
// structure.
func (s *Store) LoadStructure(ctx context.Context) (*structure.AnnotationStructure, error) {
	st, err := s.readStructure(ctx)
	if err != nil {
		return nil, corpuserr.WithOp("load structure", err)
	}
	s.structure = st
	return st.Clone(), nil
}

// CreateLevel creates the level table and records the declaration.
func (s *Store) CreateLevel(ctx context.Context, level *structure.Level) error {
	ctx = ensureContext(ctx)
	err := s.mutateStructure(ctx, "create level", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.AddLevel(level); err != nil {
			return err
		}
		created, _ := st.Level(level.ID)
		if _, err := tx.ExecContext(ctx, createLevelTableSQL(created)); err != nil {
			return fmt.Errorf("create table for level %s: %w", level.ID, err)
		}
		if err := createIndexes(ctx, tx, created); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
	if err != nil {
		return err
	}
	s.logger.Info("level created",
		logging.String(logging.FieldLevelID, level.ID),
		logging.String("kind", string(level.Kind)),
		logging.Int("attributes", len(level.Attributes)),
	)
	return nil
}

// RenameLevel renames the level table and updates child references.
func (s *Store) RenameLevel(ctx context.Context, levelID, newLevelID string) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "rename level", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.RenameLevel(levelID, newLevelID); err != nil {
			return err
		}
		if levelID == newLevelID {
			return nil
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s",
			tableName(levelID), tableName(newLevelID))); err != nil {
			return fmt.Errorf("rename table of level %s: %w", levelID, err)
		}
		renamed, _ := st.Level(newLevelID)
		if err := rebuildIndexes(ctx, tx, renamed); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
}

// DeleteLevel drops the level table and its declaration. Levels that are
// the parent of another level cannot be deleted.
func (s *Store) DeleteLevel(ctx context.Context, levelID string) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "delete level", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.RemoveLevel(levelID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+tableName(levelID)); err != nil {
			return fmt.Errorf("drop table of level %s: %w", levelID, err)
		}
		return writeStructure(ctx, tx, st)
	})
}

// CreateAttribute adds a column to a level table.
func (s *Store) CreateAttribute(ctx context.Context, levelID string, attr *structure.Attribute) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "create attribute", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.AddAttribute(levelID, attr); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			tableName(levelID), quoteIdent(attr.ID), attr.DataType.SQLType())); err != nil {
			return fmt.Errorf("add column %s.%s: %w", levelID, attr.ID, err)
		}
		level, _ := st.Level(levelID)
		if err := rebuildIndexes(ctx, tx, level); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
}

// RenameAttribute renames a level table column.
func (s *Store) RenameAttribute(ctx context.Context, levelID, attributeID, newAttributeID string) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "rename attribute", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.RenameAttribute(levelID, attributeID, newAttributeID); err != nil {
			return err
		}
		if attributeID == newAttributeID {
			return nil
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			tableName(levelID), quoteIdent(attributeID), quoteIdent(newAttributeID))); err != nil {
			return fmt.Errorf("rename column %s.%s: %w", levelID, attributeID, err)
		}
		level, _ := st.Level(levelID)
		if err := rebuildIndexes(ctx, tx, level); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
}

// DeleteAttribute drops a level table column and its data.
func (s *Store) DeleteAttribute(ctx context.Context, levelID, attributeID string) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "delete attribute", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.RemoveAttribute(levelID, attributeID); err != nil {
			return err
		}
		// SQLite refuses to drop indexed columns.
		if err := dropIndexes(ctx, tx, levelID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
			tableName(levelID), quoteIdent(attributeID))); err != nil {
			return fmt.Errorf("drop column %s.%s: %w", levelID, attributeID, err)
		}
		level, _ := st.Level(levelID)
		if err := createIndexes(ctx, tx, level); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
}

// RetypeAttribute converts every stored value of an attribute to dt. When a
// value cannot be represented the call fails with a schema conflict and the
// store is unchanged.
func (s *Store) RetypeAttribute(ctx context.Context, levelID, attributeID string, dt structure.DataType) error {
	ctx = ensureContext(ctx)
	return s.mutateStructure(ctx, "retype attribute", func(tx *sql.Tx, st *structure.AnnotationStructure) error {
		if err := st.RetypeAttribute(levelID, attributeID, dt); err != nil {
			return err
		}
		table, column := tableName(levelID), quoteIdent(attributeID)

		type converted struct {
			annotationID, speakerID string
			item                    int64
			value                   any
		}
		rows, err := tx.QueryContext(ctx, fmt.Sprintf("SELECT annotation_id, speaker_id, item_no, %s FROM %s WHERE %s IS NOT NULL", column, table, column))
		if err != nil {
			return fmt.Errorf("read %s.%s: %w", levelID, attributeID, err)
		}
		var values []converted
		for rows.Next() {
			var (
				c   converted
				raw any
			)
			if err := rows.Scan(&c.annotationID, &c.speakerID, &c.item, &raw); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s.%s: %w", levelID, attributeID, err)
			}
			v, convErr := dt.Coerce(raw)
			if convErr != nil {
				rows.Close()
				return corpuserr.SchemaConflict("attribute "+levelID+"."+attributeID,
					"stored value %q cannot be converted to %s", fmt.Sprint(raw), dt)
			}
			c.value = toSQL(v)
			values = append(values, c)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("read %s.%s: %w", levelID, attributeID, err)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		tmp := quoteIdent(attributeID + "__retype")
		if err := dropIndexes(ctx, tx, levelID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, tmp, dt.SQLType())); err != nil {
			return fmt.Errorf("retype %s.%s: %w", levelID, attributeID, err)
		}
		update, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"UPDATE %s SET %s = ? WHERE annotation_id = ? AND speaker_id = ? AND item_no = ?", table, tmp))
		if err != nil {
			return fmt.Errorf("prepare retype update: %w", err)
		}
		defer update.Close()
		for _, v := range values {
			if _, err := update.ExecContext(ctx, v.value, v.annotationID, v.speakerID, v.item); err != nil {
				return fmt.Errorf("convert %s.%s: %w", levelID, attributeID, err)
			}
		}
		for _, stmt := range []string{
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", table, column),
			fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, tmp, column),
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("retype %s.%s: %w", levelID, attributeID, err)
			}
		}
		level, _ := st.Level(levelID)
		if err := createIndexes(ctx, tx, level); err != nil {
			return err
		}
		return writeStructure(ctx, tx, st)
	})
}
