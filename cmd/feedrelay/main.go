// Command feedrelay polls feeds once per source and relays new items to
// every subscribed channel.
package main

import (
	"github.com/alecthomas/kong"
)

// Globals are flags shared by every command.
type Globals struct {
	Config string `help:"Config file path (default ~/.config/feedrelay/config.yaml)" type:"path"`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Serve       ServeCmd       `cmd:"" help:"Run the subscription manager and its HTTP API."`
	Subscribe   SubscribeCmd   `cmd:"" help:"Subscribe a channel to a feed."`
	Unsubscribe UnsubscribeCmd `cmd:"" help:"Unsubscribe a channel from a feed."`
	List        ListCmd        `cmd:"" help:"List a channel's subscriptions."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("feedrelay"),
		kong.Description("Relay new feed items to subscribed channels."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
