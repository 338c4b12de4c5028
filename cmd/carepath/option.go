package carepath

// Options is the root command grouping sub-commands. Struct tags are
// interpreted by github.com/jessevdk/go-flags.
type Options struct {
	Config  string      `short:"f" long:"config" description:"client config YAML/JSONC path or URL"`
	Version bool        `short:"v" long:"version" description:"print version and exit"`
	Chat    *ChatCmd    `command:"chat" description:"Chat with the care pathway orchestrator"`
	List    *ListCmd    `command:"list" description:"List persisted sessions"`
	Show    *ShowCmd    `command:"show" description:"Render a persisted session"`
	Export  *ExportCmd  `command:"export" description:"Write a session export document to a URL"`
	Ver     *VersionCmd `command:"version" description:"Print version"`
}

// Init instantiates the sub-command referenced by the first argument so that
// the parser can populate its fields.
func (o *Options) Init(firstArg string) {
	switch firstArg {
	case "chat":
		o.Chat = &ChatCmd{}
	case "list":
		o.List = &ListCmd{}
	case "show":
		o.Show = &ShowCmd{}
	case "export":
		o.Export = &ExportCmd{}
	case "version":
		o.Ver = &VersionCmd{}
	}
}
