package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daimatz/tinyjvm/pkg/classfile"
	"github.com/daimatz/tinyjvm/pkg/dis"
)

func newJavapCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "javap <file.class>",
		Short: "Disassemble a class file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cf, err := classfile.ParseFile(args[0])
			if err != nil {
				return err
			}
			listing, err := dis.List(cf)
			if err != nil {
				return err
			}
			if name := v.GetString("method"); name != "" {
				var kept []dis.Member
				for _, m := range listing.Methods {
					if m.Name == name {
						kept = append(kept, m)
					}
				}
				if kept == nil {
					return fmt.Errorf("method %q not found in %s", name, listing.Name)
				}
				listing.Methods = kept
			}

			out := cmd.OutOrStdout()
			switch format := v.GetString("output"); format {
			case "", "text":
				dis.PrintClass(listing, out)
			case "json":
				data, err := getOutputJSON(v, listing)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
			default:
				return fmt.Errorf("unknown output format: %s", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text or json")
	cmd.Flags().String("method", "", "only list methods with this name")
	cobra.CheckErr(v.BindPFlag("output", cmd.Flags().Lookup("output")))
	cobra.CheckErr(v.BindPFlag("method", cmd.Flags().Lookup("method")))
	return cmd
}
