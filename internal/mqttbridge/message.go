// Package mqttbridge wraps an MQTT v5 client with the bridge's own
// bounded publish queue, topic-family naming, and response metadata
// handling, generalizing the teacher's AX.25-frame client/server split
// (src/ax25_link.go's frame send/receive pair) to a pub/sub transport.
package mqttbridge

// User property keys carried on outbound responses, per spec.md's MQTT
// surface section.
const (
	PropRequestTopic     = "bridge-request-topic"
	PropPin              = "bridge-pin"
	PropDatastoreKey     = "bridge-datastore-key"
	PropFilePath         = "bridge-file-path"
	PropProcessPID       = "bridge-process-pid"
	PropStatus           = "bridge-status"
	PropError            = "bridge-error"
	PropSnapshot         = "bridge-snapshot"
	PropSpool            = "bridge-spool"
	PropWatchdogEnabled  = "bridge-watchdog-enabled"
	PropWatchdogInterval = "bridge-watchdog-interval"
)

// Message is one outbound MQTT v5 publication, queued by Client.Publish
// and eventually handed to the underlying paho client.
type Message struct {
	Topic           string
	Payload         []byte
	QoS             byte
	Retain          bool
	ResponseTopic   string
	CorrelationData []byte
	UserProperties  map[string]string
}

// WithUserProperty returns a copy of m with key/value added, lazily
// allocating UserProperties.
func (m Message) WithUserProperty(key, value string) Message {
	props := make(map[string]string, len(m.UserProperties)+1)
	for k, v := range m.UserProperties {
		props[k] = v
	}
	props[key] = value
	m.UserProperties = props
	return m
}

// Topics builds the topic-family names relative to a configured prefix
// (default "br/"), per spec.md's "MQTT surface" topic family table.
type Topics struct {
	Prefix string
}

func (t Topics) topic(suffix string) string {
	return t.Prefix + suffix
}

func (t Topics) DigitalMode(pin string) string  { return t.topic("d/" + pin + "/mode") }
func (t Topics) DigitalSet(pin string) string   { return t.topic("d/" + pin + "/set") }
func (t Topics) DigitalGet(pin string) string   { return t.topic("d/" + pin + "/get") }
func (t Topics) DigitalValue(pin string) string { return t.topic("d/" + pin + "/value") }
func (t Topics) AnalogSet(pin string) string    { return t.topic("a/" + pin + "/set") }
func (t Topics) AnalogGet(pin string) string     { return t.topic("a/" + pin + "/get") }
func (t Topics) AnalogValue(pin string) string   { return t.topic("a/" + pin + "/value") }

func (t Topics) DatastorePut(key string) string       { return t.topic("datastore/put/" + key) }
func (t Topics) DatastoreGetRequest(key string) string { return t.topic("datastore/get/" + key + "/request") }
func (t Topics) DatastoreGetValue(key string) string   { return t.topic("datastore/get/" + key + "/value") }

func (t Topics) MailboxIn() string        { return t.topic("mailbox/in") }
func (t Topics) MailboxOut() string       { return t.topic("mailbox/out") }
func (t Topics) MailboxAvailable() string { return t.topic("mailbox/available") }

func (t Topics) FileRead(path string) string   { return t.topic("file/read/" + path) }
func (t Topics) FileWrite(path string) string  { return t.topic("file/write/" + path) }
func (t Topics) FileRemove(path string) string { return t.topic("file/remove/" + path) }
func (t Topics) FileValue(path string) string  { return t.topic("file/value/" + path) }

func (t Topics) ShellRun() string            { return t.topic("sh/run") }
func (t Topics) ShellRunAsync() string       { return t.topic("sh/run_async") }
func (t Topics) ShellPoll(pid string) string { return t.topic("sh/poll/" + pid) }
func (t Topics) ShellKill(pid string) string { return t.topic("sh/kill/" + pid) }

func (t Topics) SystemStatus() string            { return t.topic("system/status") }
func (t Topics) SystemMetrics() string           { return t.topic("system/metrics") }
func (t Topics) SystemVersionValue() string      { return t.topic("system/version/value") }
func (t Topics) SystemHandshakeGet() string      { return t.topic("system/bridge/handshake/get") }
func (t Topics) SystemHandshakeValue() string    { return t.topic("system/bridge/handshake/value") }
func (t Topics) SystemSummaryGet() string        { return t.topic("system/bridge/summary/get") }
func (t Topics) SystemSummaryValue() string      { return t.topic("system/bridge/summary/value") }

// SubscriptionFilters returns every topic filter the daemon must
// subscribe to in order to receive all inbound request families.
func (t Topics) SubscriptionFilters() []string {
	return []string{
		t.topic("d/+/mode"), t.topic("d/+/set"), t.topic("d/+/get"),
		t.topic("a/+/set"), t.topic("a/+/get"),
		t.topic("datastore/put/+"), t.topic("datastore/get/+/request"),
		t.MailboxIn(),
		t.topic("file/read/+"), t.topic("file/write/+"), t.topic("file/remove/+"),
		t.ShellRun(), t.ShellRunAsync(), t.topic("sh/poll/+"), t.topic("sh/kill/+"),
		t.SystemHandshakeGet(), t.SystemSummaryGet(),
	}
}
