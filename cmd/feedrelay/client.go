package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
	"github.com/tesso57/feedrelay/internal/presentation/httpapi"
)

// Remote holds the flags of commands that talk to a running server.
type Remote struct {
	Server  string        `help:"Base URL of the feedrelay server" default:"http://localhost:8080"`
	Channel string        `help:"Channel as platform:id" required:""`
	Timeout time.Duration `help:"Request timeout, must cover feed validation" default:"30s"`
}

func (r Remote) client() (httpapi.Client, subscription.ChannelRef, error) {
	channel, err := httpapi.ParseChannel(r.Channel)
	if err != nil {
		return httpapi.Client{}, "", err
	}
	return httpapi.NewClient(r.Server, r.Timeout), channel, nil
}

// SubscribeCmd subscribes a channel to a feed.
type SubscribeCmd struct {
	Remote
	URL string `arg:"" help:"Feed URL"`
}

func (c SubscribeCmd) Run() error {
	client, channel, err := c.client()
	if err != nil {
		return err
	}
	reply, err := client.Subscribe(context.Background(), channel, c.URL)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// UnsubscribeCmd unsubscribes a channel from a feed.
type UnsubscribeCmd struct {
	Remote
	URL string `arg:"" help:"Feed URL"`
}

func (c UnsubscribeCmd) Run() error {
	client, channel, err := c.client()
	if err != nil {
		return err
	}
	reply, err := client.Unsubscribe(context.Background(), channel, c.URL)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// ListCmd lists a channel's subscriptions.
type ListCmd struct {
	Remote
}

func (c ListCmd) Run() error {
	client, channel, err := c.client()
	if err != nil {
		return err
	}
	reply, err := client.List(context.Background(), channel)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}
