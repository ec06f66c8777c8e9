package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/eclipse/paho.golang/paho"
)

// runSend opens one short-lived MQTT connection, publishes a single
// message, optionally waits for a reply on a response topic, and tears
// the connection back down — the "send one test command" mode implied
// by spec.md's MQTT surface needing some way to exercise it without a
// full broker+client stack running permanently.
func runSend(args []string) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	broker := fs.String("broker", "localhost:1883", "MQTT broker host:port")
	clientID := fs.String("client-id", "bridgectl", "MQTT client id")
	topic := fs.String("topic", "", "topic to publish to (required)")
	payload := fs.String("payload", "", "payload to publish")
	wait := fs.String("wait", "", "response topic to subscribe to and print one reply from")
	timeout := fs.Duration("timeout", 5*time.Second, "how long to wait for -wait's reply")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *topic == "" {
		fmt.Fprintln(os.Stderr, "bridgectl: send requires -topic")
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	conn, err := net.Dial("tcp", *broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: dialing %s: %v\n", *broker, err)
		return 1
	}
	defer conn.Close()

	replies := make(chan *paho.Publish, 1)
	client := paho.NewClient(paho.ClientConfig{
		ClientID: *clientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				select {
				case replies <- pr.Packet:
				default:
				}
				return true, nil
			},
		},
		OnClientError: func(err error) { fmt.Fprintf(os.Stderr, "bridgectl: mqtt client error: %v\n", err) },
	})

	if _, err := client.Connect(ctx, &paho.Connect{
		KeepAlive:  30,
		ClientID:   *clientID,
		CleanStart: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: mqtt connect: %v\n", err)
		return 1
	}
	defer client.Disconnect(&paho.Disconnect{ReasonCode: 0})

	var props *paho.PublishProperties
	if *wait != "" {
		if _, err := client.Subscribe(ctx, &paho.Subscribe{
			Subscriptions: []paho.SubscribeOptions{{Topic: *wait, QoS: 1}},
		}); err != nil {
			fmt.Fprintf(os.Stderr, "bridgectl: mqtt subscribe %s: %v\n", *wait, err)
			return 1
		}
		props = &paho.PublishProperties{ResponseTopic: *wait}
	}

	if _, err := client.Publish(ctx, &paho.Publish{
		Topic:      *topic,
		QoS:        1,
		Payload:    []byte(*payload),
		Properties: props,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "bridgectl: mqtt publish %s: %v\n", *topic, err)
		return 1
	}
	fmt.Printf("published %d bytes to %s\n", len(*payload), *topic)

	if *wait == "" {
		return 0
	}

	select {
	case reply := <-replies:
		fmt.Printf("%s: %s\n", reply.Topic, reply.Payload)
		return 0
	case <-time.After(*timeout):
		fmt.Fprintf(os.Stderr, "bridgectl: timed out waiting for a reply on %s\n", *wait)
		return 1
	}
}
