package main

import (
	"os"

	_ "github.com/viant/afsc/aws"
	_ "github.com/viant/afsc/gcp"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"

	cli "github.com/cenyuzhangms/MAFCarepath-v2/cmd/carepath"
)

var Version = ""

func main() {
	cli.SetVersion(Version)
	cli.Run(os.Args[1:])
}
