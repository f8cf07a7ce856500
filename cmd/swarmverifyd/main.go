package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "swarmverifyd"}

	root.AddCommand(serveCMD(), migrateCMD(), resolveCMD(), tokenCMD())
	_ = root.Execute()
}
