// Build with: go build -buildmode=plugin -o userprompt.so ./plugins/examples
package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

type UserPromptPlugin struct{}

func (p *UserPromptPlugin) Name() string {
	return "userprompt"
}

// PromptFragment renders "user@host:dir$ ".
func (p *UserPromptPlugin) PromptFragment() string {
	name := "?"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	host, _ := os.Hostname()
	dir, _ := os.Getwd()
	return fmt.Sprintf("%s@%s:%s$ ", name, host, filepath.Base(dir))
}

var Plugin UserPromptPlugin

func main() {}
