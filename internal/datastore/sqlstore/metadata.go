package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"annotcore/internal/corpuserr"
	"annotcore/internal/datastore"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

// MetadataStore keeps annotation records and metadata attribute
// declarations. It shares the migration set of Store, so both may use the
// same database file.
type MetadataStore struct {
	db        *sql.DB
	path      string
	structure *structure.MetadataStructure
	logger    *slog.Logger
}

var _ datastore.MetadataDatastore = (*MetadataStore)(nil)

// OpenMetadata creates or opens the metadata tables at path.
func OpenMetadata(ctx context.Context, path string, logger *slog.Logger) (*MetadataStore, error) {
	logger = logging.NewComponentLogger(logger, "metadata")
	db, err := openDB(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	m := &MetadataStore{db: db, path: path, logger: logger}
	if m.structure, err = m.readStructure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the underlying database connection.
func (m *MetadataStore) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	if err := m.db.Close(); err != nil {
		return corpuserr.IO("close metadata", err)
	}
	return nil
}

// LoadStructure re-reads the metadata attribute declarations.
func (m *MetadataStore) LoadStructure(ctx context.Context) (*structure.MetadataStructure, error) {
	st, err := m.readStructure(ctx)
	if err != nil {
		return nil, err
	}
	m.structure = st
	return st.Clone(), nil
}

func (m *MetadataStore) readStructure(ctx context.Context) (*structure.MetadataStructure, error) {
	rows, err := m.db.QueryContext(ensureContext(ctx), `SELECT object_type, attribute_id, COALESCE(name, ''),
		COALESCE(description, ''), datatype, length, is_indexed, COALESCE(name_value_list, '')
		FROM metadata_attributes ORDER BY object_type, position`)
	if err != nil {
		return nil, corpuserr.IO("load metadata structure", err)
	}
	defer rows.Close()
	st := structure.NewMetadataStructure()
	for rows.Next() {
		var (
			object, base       string
			precision, indexed int
			a                  structure.Attribute
		)
		if err := rows.Scan(&object, &a.ID, &a.Name, &a.Description, &base, &precision, &indexed, &a.NameValueList); err != nil {
			return nil, corpuserr.IO("load metadata structure", err)
		}
		if a.DataType, err = structure.ParseDataType(base, precision); err != nil {
			return nil, err
		}
		a.Indexed = indexed != 0
		if err := st.AddAttribute(structure.ObjectType(object), &a); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, corpuserr.IO("load metadata structure", err)
	}
	return st, nil
}

// CreateAttribute declares a metadata attribute on an object type.
func (m *MetadataStore) CreateAttribute(ctx context.Context, object structure.ObjectType, attr *structure.Attribute) error {
	ctx = ensureContext(ctx)
	if err := m.structure.AddAttribute(object, attr); err != nil {
		return corpuserr.WithOp("create metadata attribute", err)
	}
	position := len(m.structure.Attributes(object)) - 1
	err := withTx(ctx, m.db, "create metadata attribute", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO metadata_attributes
			(object_type, attribute_id, position, name, description, datatype, length, is_indexed, name_value_list)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(object), attr.ID, position, attr.Name, attr.Description,
			string(baseOf(attr.DataType)), attr.DataType.Precision, boolInt(attr.Indexed), attr.NameValueList)
		return err
	})
	if err != nil {
		_ = m.structure.RemoveAttribute(object, attr.ID)
		return err
	}
	m.logger.Info("metadata attribute created",
		logging.String("object_type", string(object)),
		logging.String("attribute_id", attr.ID),
	)
	return nil
}

// SaveAnnotation inserts or replaces an annotation record and its metadata
// values. Every attribute must be declared for ObjectAnnotation.
func (m *MetadataStore) SaveAnnotation(ctx context.Context, record datastore.AnnotationRecord) error {
	ctx = ensureContext(ctx)
	if record.ID == "" {
		return corpuserr.Validation("annotation", "empty annotation id")
	}
	values := make(map[string]any, len(record.Attributes))
	for id, raw := range record.Attributes {
		a, ok := m.structure.Attribute(structure.ObjectAnnotation, id)
		if !ok {
			return corpuserr.Validation("annotation "+record.ID, "metadata attribute %q is not declared", id)
		}
		v, err := a.DataType.Coerce(raw)
		if err != nil {
			return corpuserr.WithOp("save annotation", err)
		}
		values[id] = toSQL(v)
	}
	return withTx(ctx, m.db, "save annotation", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO annotations (annotation_id, communication_id, name) VALUES (?, ?, ?)
			ON CONFLICT(annotation_id) DO UPDATE SET communication_id = excluded.communication_id, name = excluded.name`,
			record.ID, nullString(record.CommunicationID), record.Name); err != nil {
			return fmt.Errorf("upsert annotation: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM annotation_metadata WHERE annotation_id = ?", record.ID); err != nil {
			return fmt.Errorf("clear metadata: %w", err)
		}
		for id, v := range values {
			if v == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO annotation_metadata (annotation_id, attribute_id, value) VALUES (?, ?, ?)",
				record.ID, id, v); err != nil {
				return fmt.Errorf("insert metadata %s: %w", id, err)
			}
		}
		return nil
	})
}

// Annotation returns one annotation record.
func (m *MetadataStore) Annotation(ctx context.Context, id string) (datastore.AnnotationRecord, error) {
	ctx = ensureContext(ctx)
	record := datastore.AnnotationRecord{ID: id}
	err := m.db.QueryRowContext(ctx,
		"SELECT COALESCE(communication_id, ''), COALESCE(name, '') FROM annotations WHERE annotation_id = ?", id,
	).Scan(&record.CommunicationID, &record.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return record, corpuserr.NotFound("annotation", id)
	}
	if err != nil {
		return record, corpuserr.IO("load annotation", err)
	}
	attrs, err := m.metadataValues(ctx, id)
	if err != nil {
		return record, err
	}
	record.Attributes = attrs
	return record, nil
}

// Annotations returns every annotation record ordered by ID.
func (m *MetadataStore) Annotations(ctx context.Context) ([]datastore.AnnotationRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := m.db.QueryContext(ctx,
		"SELECT annotation_id, COALESCE(communication_id, ''), COALESCE(name, '') FROM annotations ORDER BY annotation_id")
	if err != nil {
		return nil, corpuserr.IO("list annotations", err)
	}
	var out []datastore.AnnotationRecord
	for rows.Next() {
		var r datastore.AnnotationRecord
		if err := rows.Scan(&r.ID, &r.CommunicationID, &r.Name); err != nil {
			rows.Close()
			return nil, corpuserr.IO("list annotations", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, corpuserr.IO("list annotations", err)
	}
	if err := rows.Close(); err != nil {
		return nil, corpuserr.IO("list annotations", err)
	}
	for i := range out {
		if out[i].Attributes, err = m.metadataValues(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteAnnotation removes an annotation record and its metadata values.
func (m *MetadataStore) DeleteAnnotation(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	var affected int64
	err := withTx(ctx, m.db, "delete annotation", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM annotations WHERE annotation_id = ?", id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return corpuserr.NotFound("annotation", id)
	}
	return nil
}

func (m *MetadataStore) metadataValues(ctx context.Context, id string) (map[string]any, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT attribute_id, value FROM annotation_metadata WHERE annotation_id = ?", id)
	if err != nil {
		return nil, corpuserr.IO("load metadata", err)
	}
	defer rows.Close()
	out := map[string]any{}
	for rows.Next() {
		var (
			attrID string
			raw    any
		)
		if err := rows.Scan(&attrID, &raw); err != nil {
			return nil, corpuserr.IO("load metadata", err)
		}
		v := raw
		if a, ok := m.structure.Attribute(structure.ObjectAnnotation, attrID); ok {
			if v, err = a.DataType.Coerce(raw); err != nil {
				return nil, err
			}
		}
		out[attrID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, corpuserr.IO("load metadata", err)
	}
	return out, nil
}
