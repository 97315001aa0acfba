package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/viper"

	"github.com/daimatz/tinyjvm/internal/logging"
)

var red = color.New(color.FgRed).SprintFunc()

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func getOutputJSON(v *viper.Viper, result any) ([]byte, error) {
	if v.GetBool("no-color") || !logging.IsTerminal(os.Stdout) {
		return json.MarshalIndent(result, "", "  ")
	}
	return prettyjson.Marshal(result)
}
