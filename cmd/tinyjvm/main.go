package main

import "github.com/spf13/viper"

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fatal(err)
	}
}
