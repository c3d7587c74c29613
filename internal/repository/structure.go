package repository

import (
	"context"
	"io"

	"annotcore/internal/corpuserr"
	"annotcore/internal/logging"
	"annotcore/internal/structure"
)

// CreateLevel declares a level durably, then adds it to the structure.
func (r *Repository) CreateLevel(ctx context.Context, level *structure.Level) error {
	if err := r.structure.CheckNewLevel(level); err != nil {
		return corpuserr.WithOp("create level", err)
	}
	if err := r.annotations.CreateLevel(ctx, level); err != nil {
		return err
	}
	return r.apply("create level", func(s *structure.AnnotationStructure) error {
		return s.AddLevel(level)
	})
}

// RenameLevel renames a level in the datastore, then in the structure.
func (r *Repository) RenameLevel(ctx context.Context, levelID, newLevelID string) error {
	if err := r.annotations.RenameLevel(ctx, levelID, newLevelID); err != nil {
		return err
	}
	return r.apply("rename level", func(s *structure.AnnotationStructure) error {
		return s.RenameLevel(levelID, newLevelID)
	})
}

// DeleteLevel drops a level and its stored tiers.
func (r *Repository) DeleteLevel(ctx context.Context, levelID string) error {
	if err := r.annotations.DeleteLevel(ctx, levelID); err != nil {
		return err
	}
	return r.apply("delete level", func(s *structure.AnnotationStructure) error {
		return s.RemoveLevel(levelID)
	})
}

// CreateAttribute adds an attribute column to a level.
func (r *Repository) CreateAttribute(ctx context.Context, levelID string, attr *structure.Attribute) error {
	if err := r.annotations.CreateAttribute(ctx, levelID, attr); err != nil {
		return err
	}
	return r.apply("create attribute", func(s *structure.AnnotationStructure) error {
		return s.AddAttribute(levelID, attr)
	})
}

// RenameAttribute renames an attribute column.
func (r *Repository) RenameAttribute(ctx context.Context, levelID, attributeID, newAttributeID string) error {
	if err := r.annotations.RenameAttribute(ctx, levelID, attributeID, newAttributeID); err != nil {
		return err
	}
	return r.apply("rename attribute", func(s *structure.AnnotationStructure) error {
		return s.RenameAttribute(levelID, attributeID, newAttributeID)
	})
}

// DeleteAttribute drops an attribute column and its values.
func (r *Repository) DeleteAttribute(ctx context.Context, levelID, attributeID string) error {
	if err := r.annotations.DeleteAttribute(ctx, levelID, attributeID); err != nil {
		return err
	}
	return r.apply("delete attribute", func(s *structure.AnnotationStructure) error {
		return s.RemoveAttribute(levelID, attributeID)
	})
}

// RetypeAttribute converts stored values to dt. It fails with a schema
// conflict, leaving everything unchanged, when a value does not fit.
func (r *Repository) RetypeAttribute(ctx context.Context, levelID, attributeID string, dt structure.DataType) error {
	if err := r.annotations.RetypeAttribute(ctx, levelID, attributeID, dt); err != nil {
		return err
	}
	return r.apply("retype attribute", func(s *structure.AnnotationStructure) error {
		return s.RetypeAttribute(levelID, attributeID, dt)
	})
}

// CreateMetadataAttribute declares a metadata attribute on an object type.
func (r *Repository) CreateMetadataAttribute(ctx context.Context, object structure.ObjectType, attr *structure.Attribute) error {
	if err := r.metadata.CreateAttribute(ctx, object, attr); err != nil {
		return err
	}
	if err := r.metaStruct.AddAttribute(object, attr); err != nil {
		return r.resync(ctx, "create metadata attribute", err)
	}
	return nil
}

// ImportStructure reads a structure definition document and creates every
// level it declares that the corpus does not have yet, in document order.
// It returns the IDs of the created levels.
func (r *Repository) ImportStructure(ctx context.Context, src io.Reader) ([]string, error) {
	imported, err := structure.LoadXML(src)
	if err != nil {
		return nil, corpuserr.WithOp("import structure", err)
	}
	var created []string
	for _, level := range imported.Levels() {
		if _, exists := r.structure.Level(level.ID); exists {
			r.logger.Debug("level already declared; skipped", logging.String(logging.FieldLevelID, level.ID))
			continue
		}
		if err := r.CreateLevel(ctx, level); err != nil {
			return created, err
		}
		created = append(created, level.ID)
	}
	r.logger.Info("structure imported", logging.Int("levels", len(created)))
	return created, nil
}

// apply mutates the in-memory structure after the datastore accepted a
// change. A failure here means the two disagree, so the structure is
// reloaded from the datastore.
func (r *Repository) apply(op string, fn func(*structure.AnnotationStructure) error) error {
	if err := fn(r.structure); err != nil {
		return r.resync(context.Background(), op, err)
	}
	return nil
}

func (r *Repository) resync(ctx context.Context, op string, cause error) error {
	logging.WarnWithContext(r.logger, "in-memory structure out of sync; reloading", "structure_resync",
		logging.String("op", op),
		logging.Error(cause),
		logging.String(logging.FieldImpact, "structure reloaded from the datastore"),
	)
	st, err := r.annotations.LoadStructure(ctx)
	if err != nil {
		return err
	}
	meta, err := r.metadata.LoadStructure(ctx)
	if err != nil {
		return err
	}
	r.structure, r.metaStruct = st, meta
	return nil
}
