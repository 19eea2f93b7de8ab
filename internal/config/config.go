// Package config loads the process configuration: a YAML file for the
// application surface (server, pubsub routing) traversed through
// core/optional so failures name the exact nested field, plus
// environment variables for secrets and endpoints.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/codewandler/userd-go/core/optional"
)

// Pubsub routing keys known to the service.
const (
	MessageKeyUserUpdated = "user-updated"
	MessageKeyUserDeleted = "user-deleted"

	SubscriptionKeyUserCreated = "user-created"
	SubscriptionKeyUserDeleted = "user-deleted"
)

const defaultNatsURL = "nats://127.0.0.1:4222"

// Config is the fully resolved process configuration. Construct via
// Load and thread it explicitly; there is no global instance.
type Config struct {
	App    App
	Server Server
	Mongo  Mongo
	Nats   Nats
	Pubsub *Pubsub
}

type App struct {
	Name   string
	Env    string
	Author string
}

type Server struct {
	Port   int
	Prefix string
}

type Mongo struct {
	URI      string
	Database string
}

type Nats struct {
	URL string
}

// Topic groups the messages published to and subscriptions consumed
// from one broker subject namespace.
type Topic struct {
	Topic         string
	Messages      []Message
	Subscriptions []Subscription
}

type Message struct {
	Key     string
	Message string
}

type Subscription struct {
	Key          string
	Subscription string
}

// MessageRoute is the resolved publish target for a message key.
type MessageRoute struct {
	Topic   string
	Message string
}

// SubscriptionRoute is the resolved consume source for a subscription
// key.
type SubscriptionRoute struct {
	Topic        string
	Subscription string
}

// Pubsub holds the declared topics and memoizes key lookups. The topic
// list is immutable after Load.
type Pubsub struct {
	Topics []Topic

	mu            sync.Mutex
	messages      map[string]MessageRoute
	subscriptions map[string]SubscriptionRoute
}

// Message resolves the publish route for key, scanning the topics on
// first use.
func (p *Pubsub) Message(key string) (MessageRoute, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if route, ok := p.messages[key]; ok {
		return route, nil
	}
	for _, topic := range p.Topics {
		for _, m := range topic.Messages {
			if m.Key == key {
				route := MessageRoute{Topic: topic.Topic, Message: m.Message}
				if p.messages == nil {
					p.messages = map[string]MessageRoute{}
				}
				p.messages[key] = route
				return route, nil
			}
		}
	}
	return MessageRoute{}, fmt.Errorf("config: message %q not found in any topic", key)
}

// Subscription resolves the consume route for key.
func (p *Pubsub) Subscription(key string) (SubscriptionRoute, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if route, ok := p.subscriptions[key]; ok {
		return route, nil
	}
	for _, topic := range p.Topics {
		for _, s := range topic.Subscriptions {
			if s.Key == key {
				route := SubscriptionRoute{Topic: topic.Topic, Subscription: s.Subscription}
				if p.subscriptions == nil {
					p.subscriptions = map[string]SubscriptionRoute{}
				}
				p.subscriptions[key] = route
				return route, nil
			}
		}
	}
	return SubscriptionRoute{}, fmt.Errorf("config: subscription %q not found in any topic", key)
}

// envVars are the environment-only parts: file location, secrets and
// endpoints.
type envVars struct {
	ConfigPath string `env:"USERD_CONFIG" envDefault:"./config.yaml"`
	Env        string `env:"USERD_ENV" envDefault:"dev"`

	MongoURI      string `env:"USERD_MONGODB_URI"`
	MongoDatabase string `env:"USERD_MONGODB_DATABASE" envDefault:"userd"`
	MongoUser     string `env:"USERD_MONGODB_USERNAME"`
	MongoPassword string `env:"USERD_MONGODB_PASSWORD"`
	MongoHost     string `env:"USERD_MONGODB_HOST" envDefault:"127.0.0.1"`
	MongoPort     int    `env:"USERD_MONGODB_PORT" envDefault:"27017"`
	MongoOptions  string `env:"USERD_MONGODB_OPTIONS"`

	NatsURL string `env:"USERD_NATS_URL"`
}

// Load reads the YAML file named by USERD_CONFIG (default
// ./config.yaml), applies environment overrides and returns the
// resolved configuration.
func Load() (*Config, error) {
	var ev envVars
	if err := env.Parse(&ev); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	raw, err := os.ReadFile(ev.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", ev.ConfigPath, err)
	}
	return parse(raw, ev)
}

func parse(raw []byte, ev envVars) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	root := optional.OfUndefinable[any](doc)

	app, err := loadApp(root, ev)
	if err != nil {
		return nil, err
	}
	server, err := loadServer(root)
	if err != nil {
		return nil, err
	}
	pubsub, err := loadPubsub(root)
	if err != nil {
		return nil, err
	}

	return &Config{
		App:    app,
		Server: server,
		Mongo:  loadMongo(ev),
		Nats:   loadNats(root, ev),
		Pubsub: pubsub,
	}, nil
}

func loadApp(root optional.Optional[any], ev envVars) (App, error) {
	node := root.GetFromObject("app")
	name, err := requiredString(node.GetFromObject("name"))
	if err != nil {
		return App{}, err
	}
	author, err := requiredString(node.GetFromObject("author"))
	if err != nil {
		return App{}, err
	}
	return App{Name: name, Env: ev.Env, Author: author}, nil
}

func loadServer(root optional.Optional[any]) (Server, error) {
	node := root.GetFromObject("server")
	prefix, err := requiredString(node.GetFromObject("prefix"))
	if err != nil {
		return Server{}, err
	}
	port, err := intOrDefault(node.GetFromObject("port"), 8080)
	if err != nil {
		return Server{}, err
	}
	return Server{Port: port, Prefix: prefix}, nil
}

func loadMongo(ev envVars) Mongo {
	uri := ev.MongoURI
	if uri == "" {
		credentials := ""
		if ev.MongoUser != "" {
			credentials = ev.MongoUser + ":" + ev.MongoPassword + "@"
		}
		options := ""
		if ev.MongoOptions != "" {
			options = "?" + ev.MongoOptions
		}
		uri = fmt.Sprintf("mongodb://%s%s:%d/%s%s", credentials, ev.MongoHost, ev.MongoPort, ev.MongoDatabase, options)
	}
	return Mongo{URI: uri, Database: ev.MongoDatabase}
}

func loadNats(root optional.Optional[any], ev envVars) Nats {
	if ev.NatsURL != "" {
		return Nats{URL: ev.NatsURL}
	}
	url, ok := root.GetFromObject("nats").GetFromObject("url").Get()
	if s, isStr := url.(string); ok && isStr {
		return Nats{URL: s}
	}
	return Nats{URL: defaultNatsURL}
}

func loadPubsub(root optional.Optional[any]) (*Pubsub, error) {
	node := root.GetFromObject("pubsub").GetFromObject("topics")
	raw, ok := node.Get()
	if !ok {
		return &Pubsub{}, nil
	}
	list, isList := raw.([]any)
	if !isList {
		return nil, fmt.Errorf("config: value %q is not a list", node.Trace())
	}

	topics := make([]Topic, 0, len(list))
	for i := range list {
		topic, err := loadTopic(node.Index(i))
		if err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return &Pubsub{Topics: topics}, nil
}

func loadTopic(node optional.Optional[any]) (Topic, error) {
	name, err := requiredString(node.GetFromObject("topic"))
	if err != nil {
		return Topic{}, err
	}

	topic := Topic{Topic: name}

	messages := node.GetFromObject("messages")
	if raw, ok := messages.Get(); ok {
		list, isList := raw.([]any)
		if !isList {
			return Topic{}, fmt.Errorf("config: value %q is not a list", messages.Trace())
		}
		for i := range list {
			entry := messages.Index(i)
			key, err := requiredString(entry.GetFromObject("key"))
			if err != nil {
				return Topic{}, err
			}
			message, err := requiredString(entry.GetFromObject("message"))
			if err != nil {
				return Topic{}, err
			}
			topic.Messages = append(topic.Messages, Message{Key: key, Message: message})
		}
	}

	subscriptions := node.GetFromObject("subscriptions")
	if raw, ok := subscriptions.Get(); ok {
		list, isList := raw.([]any)
		if !isList {
			return Topic{}, fmt.Errorf("config: value %q is not a list", subscriptions.Trace())
		}
		for i := range list {
			entry := subscriptions.Index(i)
			key, err := requiredString(entry.GetFromObject("key"))
			if err != nil {
				return Topic{}, err
			}
			sub, err := requiredString(entry.GetFromObject("subscription"))
			if err != nil {
				return Topic{}, err
			}
			topic.Subscriptions = append(topic.Subscriptions, Subscription{Key: key, Subscription: sub})
		}
	}
	return topic, nil
}

func requiredString(o optional.Optional[any]) (string, error) {
	v, ok := o.Get()
	if !ok {
		return "", fmt.Errorf("config: missing required value %q", o.Trace())
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: value %q is not a string", o.Trace())
	}
	return s, nil
}

func intOrDefault(o optional.Optional[any], fallback int) (int, error) {
	v, ok := o.Get()
	if !ok {
		return fallback, nil
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	default:
		return 0, fmt.Errorf("config: value %q is not a number", o.Trace())
	}
}
