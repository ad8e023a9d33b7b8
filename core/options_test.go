package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

type failingRawLoader struct {
	err error
}

func (l failingRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, l.err
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.MetricsRecorder == nil {
		t.Fatalf("expected default metrics recorder")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if deps.Now == nil {
		t.Fatalf("expected default clock")
	}
	if got := svc.Config().ServiceName; got != "webhooks" {
		t.Fatalf("expected default config service_name=webhooks, got %q", got)
	}
	if got := svc.Config().Subscriptions.DefaultTimeoutMS; got != 10000 {
		t.Fatalf("expected default timeout 10000ms, got %d", got)
	}
	if got := svc.Config().Subscriptions.SecretBytes; got != 24 {
		t.Fatalf("expected default secret bytes 24, got %d", got)
	}
}

func TestNewService_WithOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	persistenceClient := &struct{ Name string }{Name: "persistence"}
	repositoryFactory := &struct{ Name string }{Name: "repo"}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved"}}
	subs := newMemorySubscriptionStore()
	ledger := newMemoryDeliveryLedger()
	sender := &stubDeliverer{}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithPersistenceClient(persistenceClient),
		WithRepositoryFactory(repositoryFactory),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithSubscriptionStore(subs),
		WithDeliveryLedger(ledger),
		WithDeliverer(sender),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if deps.PersistenceClient != persistenceClient {
		t.Fatalf("expected custom persistence client override")
	}
	if deps.RepositoryFactory != repositoryFactory {
		t.Fatalf("expected custom repository factory override")
	}
	if deps.ConfigProvider != configProvider {
		t.Fatalf("expected custom config provider override")
	}
	if deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected custom options resolver override")
	}
	if deps.SubscriptionStore != subs {
		t.Fatalf("expected custom subscription store override")
	}
	if deps.DeliveryLedger != ledger {
		t.Fatalf("expected custom delivery ledger override")
	}
	if deps.Deliverer != sender {
		t.Fatalf("expected custom deliverer override")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"deliveries": map[string]any{
			"list_limit": 25,
		},
	}})

	svc, err := NewService(Config{ServiceName: "from-runtime"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Deliveries.ListLimit != 25 {
		t.Fatalf("expected config layer list limit, got %d", cfg.Deliveries.ListLimit)
	}
	if cfg.Subscriptions.DefaultTimeoutMS != 10000 {
		t.Fatalf("expected default timeout where no layer overrides, got %d", cfg.Subscriptions.DefaultTimeoutMS)
	}
}

func TestNewService_SurfacesConfigLoadFailure(t *testing.T) {
	provider := NewCfgxConfigProvider(failingRawLoader{err: errors.New("config backend unavailable")})
	if _, err := NewService(Config{}, WithConfigProvider(provider)); err == nil {
		t.Fatalf("expected config load failure to surface")
	}
}

func TestGoOptionsResolver_MergesLayers(t *testing.T) {
	resolver := GoOptionsResolver{}
	defaults := DefaultConfig()

	loaded := DefaultConfig()
	loaded.ServiceName = "loaded"
	loaded.Deliveries.ListLimit = 10

	runtime := Config{
		Subscriptions: SubscriptionsConfig{DefaultTimeoutMS: 5000},
	}

	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "loaded" {
		t.Fatalf("expected loaded service name, got %q", resolved.ServiceName)
	}
	if resolved.Subscriptions.DefaultTimeoutMS != 5000 {
		t.Fatalf("expected runtime timeout override, got %d", resolved.Subscriptions.DefaultTimeoutMS)
	}
	if resolved.Deliveries.ListLimit != 10 {
		t.Fatalf("expected loaded list limit, got %d", resolved.Deliveries.ListLimit)
	}
	if resolved.Subscriptions.SecretBytes != 24 {
		t.Fatalf("expected default secret bytes, got %d", resolved.Subscriptions.SecretBytes)
	}
}

func TestGoOptionsResolver_RejectsInvalidMergedConfig(t *testing.T) {
	resolver := GoOptionsResolver{}
	runtime := Config{
		Deliveries: DeliveriesConfig{ListLimit: 500},
	}
	if _, err := resolver.Resolve(DefaultConfig(), DefaultConfig(), runtime); err == nil {
		t.Fatalf("expected merged config with list_limit above max_list_limit to fail validation")
	}
}

func TestCfgxConfigProvider_FallsBackToDefaults(t *testing.T) {
	ctx := context.Background()

	loaded, err := NewCfgxConfigProvider(nil).Load(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("load with nil loader: %v", err)
	}
	if loaded != DefaultConfig() {
		t.Fatalf("expected untouched defaults, got %+v", loaded)
	}

	var nilProvider *CfgxConfigProvider
	loaded, err = nilProvider.Load(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("load on nil provider: %v", err)
	}
	if loaded.ServiceName != "webhooks" {
		t.Fatalf("expected defaults from nil provider, got %q", loaded.ServiceName)
	}
}

type stubStoreProvider struct {
	subs   SubscriptionStore
	ledger DeliveryLedger
}

func (p stubStoreProvider) SubscriptionStore() SubscriptionStore { return p.subs }
func (p stubStoreProvider) DeliveryLedger() DeliveryLedger       { return p.ledger }

type stubStoreFactory struct {
	provider StoreProvider
	err      error
	client   any
}

func (f *stubStoreFactory) BuildStores(persistenceClient any) (StoreProvider, error) {
	f.client = persistenceClient
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

func TestNewService_BuildsStoresFromRepositoryFactory(t *testing.T) {
	subs := newMemorySubscriptionStore()
	ledger := newMemoryDeliveryLedger()
	client := &struct{ Name string }{Name: "bun"}
	factory := &stubStoreFactory{provider: stubStoreProvider{subs: subs, ledger: ledger}}

	svc, err := NewService(Config{},
		WithPersistenceClient(client),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.SubscriptionStore != subs {
		t.Fatalf("expected factory-built subscription store")
	}
	if deps.DeliveryLedger != ledger {
		t.Fatalf("expected factory-built delivery ledger")
	}
	if factory.client != client {
		t.Fatalf("expected persistence client handed to the factory")
	}
}

func TestNewService_AcceptsPlainStoreProvider(t *testing.T) {
	subs := newMemorySubscriptionStore()
	ledger := newMemoryDeliveryLedger()

	svc, err := NewService(Config{},
		WithRepositoryFactory(stubStoreProvider{subs: subs, ledger: ledger}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.SubscriptionStore != subs || deps.DeliveryLedger != ledger {
		t.Fatalf("expected provider-supplied stores to be wired")
	}
}

func TestNewService_ExplicitStoresWinOverFactory(t *testing.T) {
	explicit := newMemorySubscriptionStore()
	fromFactory := newMemorySubscriptionStore()
	ledger := newMemoryDeliveryLedger()
	factory := &stubStoreFactory{provider: stubStoreProvider{subs: fromFactory, ledger: ledger}}

	svc, err := NewService(Config{},
		WithSubscriptionStore(explicit),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.SubscriptionStore != explicit {
		t.Fatalf("expected the explicit store to win")
	}
	if deps.DeliveryLedger != ledger {
		t.Fatalf("expected the missing ledger to come from the factory")
	}
}

func TestNewService_SurfacesStoreFactoryFailure(t *testing.T) {
	factory := &stubStoreFactory{err: errors.New("migrations pending")}
	if _, err := NewService(Config{}, WithRepositoryFactory(factory)); err == nil {
		t.Fatalf("expected store factory failure to surface")
	}
}

func TestSetup_AliasesNewService(t *testing.T) {
	svc, err := Setup(Config{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if svc.Config().ServiceName != "webhooks" {
		t.Fatalf("expected default config through setup, got %q", svc.Config().ServiceName)
	}
}

func TestConfigValidate_RejectsBadValues(t *testing.T) {
	if err := (&Config{}).Validate(); err == nil {
		t.Fatalf("expected zero config to fail validation")
	}

	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty service name", func(c *Config) { c.ServiceName = " " }},
		{"zero timeout", func(c *Config) { c.Subscriptions.DefaultTimeoutMS = 0 }},
		{"negative retry budget", func(c *Config) { c.Subscriptions.DefaultRetryBudget = -1 }},
		{"weak secret", func(c *Config) { c.Subscriptions.SecretBytes = 8 }},
		{"zero list limit", func(c *Config) { c.Deliveries.ListLimit = 0 }},
		{"max below default limit", func(c *Config) { c.Deliveries.MaxListLimit = 5 }},
		{"zero payload cap", func(c *Config) { c.Deliveries.PayloadMaxBytes = 0 }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation failure", tc.name)
		}
	}
}
