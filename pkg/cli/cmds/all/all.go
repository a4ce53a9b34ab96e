// Package all registers all heatctl commands.
package all

import (
	_ "github.com/robotalks/heating.go/pkg/cli/cmds/heating"
)
