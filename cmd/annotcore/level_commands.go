package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"annotcore/internal/repository"
	"annotcore/internal/structure"
)

func writeStructureXML(cmd *cobra.Command, repo *repository.Repository) error {
	return structure.WriteXML(cmd.OutOrStdout(), repo.Structure())
}

// parseDataType defaults varchar values to the standard label length.
func parseDataType(value string, precision int) (structure.DataType, error) {
	dt, err := structure.ParseDataType(value, precision)
	if err != nil {
		return dt, err
	}
	if dt.Base == structure.Varchar && dt.Precision == 0 {
		dt.Precision = structure.Text.Precision
	}
	return dt, nil
}

func newLevelCommand(ctx *commandContext) *cobra.Command {
	levelCmd := &cobra.Command{
		Use:   "level",
		Short: "Create, rename or delete annotation levels",
	}

	var kind, parent, dataType string
	var precision int
	createCmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Declare a new level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			levelKind, err := structure.ParseLevelKind(kind)
			if err != nil {
				return err
			}
			dt, err := parseDataType(dataType, precision)
			if err != nil {
				return err
			}
			level := &structure.Level{ID: args[0], Kind: levelKind, ParentLevelID: parent, DataType: dt}
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.CreateLevel(commandCtx(cmd), level); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created level %s (%s)\n", level.ID, level.Kind)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&kind, "kind", string(structure.IndependentIntervals), "Level kind")
	createCmd.Flags().StringVar(&parent, "parent", "", "Parent level for grouping, sequence, tree and relation levels")
	createCmd.Flags().StringVar(&dataType, "datatype", "varchar", "Label data type")
	createCmd.Flags().IntVar(&precision, "length", 0, "Maximum label length for varchar labels")
	levelCmd.AddCommand(createCmd)

	levelCmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <new-id>",
		Short: "Rename a level and its stored tiers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.RenameLevel(commandCtx(cmd), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed level %s to %s\n", args[0], args[1])
				return nil
			})
		},
	})

	levelCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a level and every tier stored on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.DeleteLevel(commandCtx(cmd), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted level %s\n", args[0])
				return nil
			})
		},
	})

	return levelCmd
}

func newAttributeCommand(ctx *commandContext) *cobra.Command {
	attrCmd := &cobra.Command{
		Use:   "attribute",
		Short: "Manage the attributes of a level",
	}

	var dataType string
	var precision int
	createCmd := &cobra.Command{
		Use:   "create <level> <id>",
		Short: "Add an attribute to a level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := parseDataType(dataType, precision)
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				attr := &structure.Attribute{ID: args[1], DataType: dt}
				if err := repo.CreateAttribute(commandCtx(cmd), args[0], attr); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created attribute %s.%s (%s)\n", args[0], args[1], dt)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&dataType, "datatype", "varchar", "Attribute data type")
	createCmd.Flags().IntVar(&precision, "length", 0, "Maximum length for varchar values")
	attrCmd.AddCommand(createCmd)

	attrCmd.AddCommand(&cobra.Command{
		Use:   "rename <level> <id> <new-id>",
		Short: "Rename an attribute",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.RenameAttribute(commandCtx(cmd), args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed attribute %s.%s to %s\n", args[0], args[1], args[2])
				return nil
			})
		},
	})

	attrCmd.AddCommand(&cobra.Command{
		Use:   "delete <level> <id>",
		Short: "Drop an attribute and its values",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.DeleteAttribute(commandCtx(cmd), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted attribute %s.%s\n", args[0], args[1])
				return nil
			})
		},
	})

	var retypeLength int
	retypeCmd := &cobra.Command{
		Use:   "retype <level> <id> <datatype>",
		Short: "Convert an attribute's stored values to a new type",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := structure.ParseDataType(args[2], retypeLength)
			if err != nil {
				return err
			}
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				if err := repo.RetypeAttribute(commandCtx(cmd), args[0], args[1], dt); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Attribute %s.%s is now %s\n", args[0], args[1], dt)
				return nil
			})
		},
	}
	retypeCmd.Flags().IntVar(&retypeLength, "length", 0, "Maximum length for varchar values")
	attrCmd.AddCommand(retypeCmd)

	return attrCmd
}
