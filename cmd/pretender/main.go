// pretender - local mocking proxy
package main

import "github.com/pretender-dev/pretender/pkg/cli"

func main() {
	cli.Execute()
}
