package main

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/eclipse/paho.golang/paho"
	"github.com/mculink/bridge/internal/authz"
	"github.com/mculink/bridge/internal/link"
	"github.com/mculink/bridge/internal/mqttbridge"
	"github.com/mculink/bridge/internal/protocol"
	"github.com/mculink/bridge/internal/service"
)

// publisher is the capability bridge needs from an MQTT client: enqueue
// one outbound message. *mqttbridge.Client satisfies it directly; tests
// substitute a recording fake without standing up a real connection.
type publisher interface {
	Publish(mqttbridge.Message)
}

// bridge bundles everything the MQTT inbound dispatcher needs to turn a
// topic/payload pair into a wire command or a direct local call, mirroring
// Datastore's "answered identically whether from the wire or from MQTT"
// design across every subsystem a topic can reach.
type bridge struct {
	logger *log.Logger
	topics mqttbridge.Topics
	policy *authz.Policy

	link      *link.Link
	engine    *service.Engine
	gpio      *service.GPIORequester
	datastore *service.Datastore
	mailbox   *service.Mailbox

	mqtt publisher
}

// inboundHandler adapts bridge.dispatch to mqttbridge.InboundHandler.
func (b *bridge) inboundHandler(ctx context.Context, topic string, payload []byte, props *paho.PublishProperties) {
	if err := b.dispatch(ctx, topic, payload, props); err != nil {
		b.logger.Warn("mqtt dispatch failed", "topic", topic, "err", err)
		b.publishError(topic, props, err)
	}
}

func (b *bridge) publishError(topic string, props *paho.PublishProperties, err error) {
	msg := mqttbridge.Message{
		Topic:   b.topics.SystemStatus(),
		Payload: []byte(err.Error()),
	}.WithUserProperty(mqttbridge.PropRequestTopic, topic).
		WithUserProperty(mqttbridge.PropError, err.Error())
	if props != nil && props.ResponseTopic != "" {
		msg.Topic = props.ResponseTopic
		msg.CorrelationData = props.CorrelationData
	}
	b.mqtt.Publish(msg)
}

// dispatch routes one inbound publish per the MQTT surface's topic-family
// table: pin families under prefix+"d/"/"a/", datastore/mailbox/file/sh
// families, and the two system/bridge/* request topics.
func (b *bridge) dispatch(ctx context.Context, topic string, payload []byte, props *paho.PublishProperties) error {
	prefix := b.topics.Prefix
	rest, ok := strings.CutPrefix(topic, prefix)
	if !ok {
		return nil
	}
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 3 && parts[0] == "d" && parts[2] == "mode":
		return b.handleDigitalMode(parts[1], payload)
	case len(parts) == 3 && parts[0] == "d" && parts[2] == "set":
		return b.handleDigitalSet(parts[1], payload)
	case len(parts) == 3 && parts[0] == "d" && parts[2] == "get":
		return b.handleDigitalGet(parts[1], props)
	case len(parts) == 3 && parts[0] == "a" && parts[2] == "set":
		return b.handleAnalogSet(parts[1], payload)
	case len(parts) == 3 && parts[0] == "a" && parts[2] == "get":
		return b.handleAnalogGet(parts[1], props)
	case len(parts) == 3 && parts[0] == "datastore" && parts[1] == "put":
		return b.handleDatastorePut(parts[2], payload)
	case len(parts) == 4 && parts[0] == "datastore" && parts[1] == "get" && parts[3] == "request":
		return b.handleDatastoreGet(parts[2])
	case rest == "mailbox/in":
		return b.handleMailboxIn(payload)
	case len(parts) == 3 && parts[0] == "file" && parts[1] == "read":
		return b.handleFileRead(parts[2])
	case len(parts) == 3 && parts[0] == "file" && parts[1] == "write":
		return b.handleFileWrite(parts[2], payload)
	case len(parts) == 3 && parts[0] == "file" && parts[1] == "remove":
		return b.handleFileRemove(parts[2])
	case rest == "sh/run":
		return b.handleShellRun(payload)
	case rest == "sh/run_async":
		return b.handleShellRunAsync(payload)
	case len(parts) == 3 && parts[0] == "sh" && parts[1] == "poll":
		return b.handleShellPoll(parts[2])
	case len(parts) == 3 && parts[0] == "sh" && parts[1] == "kill":
		return b.handleShellKill(parts[2])
	case rest == "system/bridge/handshake/get":
		return b.link.StartHandshake()
	case rest == "system/bridge/summary/get":
		return nil // the status-writer task (C6) republishes the summary on its own cadence
	}
	return nil
}

func (b *bridge) publishValue(topic string, payload []byte) {
	b.mqtt.Publish(mqttbridge.Message{Topic: topic, Payload: payload})
}

func (b *bridge) handleDigitalMode(pin string, payload []byte) error {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return err
	}
	if err := b.policy.Check(authz.DigitalMode); err != nil {
		return err
	}
	mode := byte(0)
	if len(payload) > 0 && payload[0] != 0 {
		mode = 1
	}
	return b.link.Send(uint16(protocol.SetPinMode), []byte{byte(n), mode})
}

func (b *bridge) handleDigitalSet(pin string, payload []byte) error {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return err
	}
	if err := b.policy.Check(authz.DigitalWrite); err != nil {
		return err
	}
	value := byte(0)
	if len(payload) > 0 && payload[0] != 0 {
		value = 1
	}
	return b.link.Send(uint16(protocol.DigitalWrite), []byte{byte(n), value})
}

func (b *bridge) handleDigitalGet(pin string, props *paho.PublishProperties) error {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return err
	}
	if err := b.policy.Check(authz.DigitalRead); err != nil {
		return err
	}
	var corrTopic, corrData = b.topics.DigitalValue(pin), []byte(nil)
	if props != nil && props.ResponseTopic != "" {
		corrTopic, corrData = props.ResponseTopic, props.CorrelationData
	}
	return b.gpio.RequestDigitalRead(n, pinCorrelation{topic: corrTopic, data: corrData})
}

func (b *bridge) handleAnalogSet(pin string, payload []byte) error {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return err
	}
	if err := b.policy.Check(authz.AnalogWrite); err != nil {
		return err
	}
	if len(payload) < 2 {
		payload = []byte{0, 0}
	}
	return b.link.Send(uint16(protocol.AnalogWrite), []byte{byte(n), payload[0], payload[1]})
}

func (b *bridge) handleAnalogGet(pin string, props *paho.PublishProperties) error {
	n, err := strconv.Atoi(pin)
	if err != nil {
		return err
	}
	if err := b.policy.Check(authz.AnalogRead); err != nil {
		return err
	}
	var corrTopic, corrData = b.topics.AnalogValue(pin), []byte(nil)
	if props != nil && props.ResponseTopic != "" {
		corrTopic, corrData = props.ResponseTopic, props.CorrelationData
	}
	return b.gpio.RequestAnalogRead(n, pinCorrelation{topic: corrTopic, data: corrData})
}

// pinCorrelation is the Correlation value threaded through
// service.PinRequest/PinResult back to the MQTT response topic a read
// request arrived with.
type pinCorrelation struct {
	topic string
	data  []byte
}

func (b *bridge) onPinResult(res service.PinResult) {
	corr, ok := res.Correlation.(pinCorrelation)
	if !ok {
		return
	}
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, res.Value)
	b.mqtt.Publish(mqttbridge.Message{Topic: corr.topic, Payload: payload, CorrelationData: corr.data})
}

func (b *bridge) handleDatastorePut(key string, payload []byte) error {
	if err := b.policy.Check(authz.DatastorePut); err != nil {
		return err
	}
	b.datastore.Put(key, payload)
	return nil
}

func (b *bridge) handleDatastoreGet(key string) error {
	if err := b.policy.Check(authz.DatastoreGet); err != nil {
		return err
	}
	value, ok := b.datastore.Get(key)
	msg := mqttbridge.Message{Topic: b.topics.DatastoreGetValue(key), Payload: value}
	if !ok {
		msg = msg.WithUserProperty(mqttbridge.PropError, "datastore-miss")
	}
	b.mqtt.Publish(msg)
	return nil
}

func (b *bridge) handleMailboxIn(payload []byte) error {
	if err := b.policy.Check(authz.MailboxWrite); err != nil {
		return err
	}
	return b.mailbox.PushIn(payload)
}

func (b *bridge) handleFileRead(path string) error {
	if err := b.policy.Check(authz.FileRead); err != nil {
		return err
	}
	out := b.engine.Handle(uint16(protocol.FileRead), []byte(path))
	if out.HasResp {
		b.publishValue(b.topics.FileValue(path), out.RespPayload)
	}
	return nil
}

func filePayload(path string, data []byte) []byte {
	out := make([]byte, 0, 1+len(path)+len(data))
	out = append(out, byte(len(path)))
	out = append(out, path...)
	out = append(out, data...)
	return out
}

func (b *bridge) handleFileWrite(path string, data []byte) error {
	if err := b.policy.Check(authz.FileWrite); err != nil {
		return err
	}
	b.engine.Handle(uint16(protocol.FileWrite), filePayload(path, data))
	return nil
}

func (b *bridge) handleFileRemove(path string) error {
	if err := b.policy.Check(authz.FileRemove); err != nil {
		return err
	}
	b.engine.Handle(uint16(protocol.FileRemove), []byte(path))
	return nil
}

func (b *bridge) handleShellRun(payload []byte) error {
	name, _, _ := strings.Cut(string(payload), " ")
	if err := b.policy.CheckShellCommand(authz.ShellRun, name); err != nil {
		return err
	}
	out := b.engine.Handle(uint16(protocol.ProcessRun), payload)
	if out.HasResp {
		b.publishValue(b.topics.ShellRun(), out.RespPayload)
	}
	return nil
}

func (b *bridge) handleShellRunAsync(payload []byte) error {
	name, _, _ := strings.Cut(string(payload), " ")
	if err := b.policy.CheckShellCommand(authz.ShellRunAsync, name); err != nil {
		return err
	}
	out := b.engine.Handle(uint16(protocol.ProcessRunAsync), payload)
	if out.HasResp {
		b.publishValue(b.topics.ShellRunAsync(), out.RespPayload)
	}
	return nil
}

func (b *bridge) handleShellPoll(pidStr string) error {
	if err := b.policy.Check(authz.ShellPoll); err != nil {
		return err
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return err
	}
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(pid))
	out := b.engine.Handle(uint16(protocol.ProcessPoll), payload)
	if out.HasResp {
		b.publishValue(b.topics.ShellPoll(pidStr), out.RespPayload)
	}
	return nil
}

func (b *bridge) handleShellKill(pidStr string) error {
	if err := b.policy.Check(authz.ShellKill); err != nil {
		return err
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return err
	}
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(pid))
	b.engine.Handle(uint16(protocol.ProcessKill), payload)
	return nil
}
