package core

import (
	"context"
	"io"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates webhook subscriptions, dispatch fan-out, and the
// delivery ledger. All execution is synchronous and request-scoped: there
// is no worker pool, queue, or retry sweep behind it.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	subscriptionStore SubscriptionStore
	deliveryLedger    DeliveryLedger
	deliverer         Deliverer
	randomSource      io.Reader
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	SubscriptionStore SubscriptionStore
	DeliveryLedger    DeliveryLedger
	Deliverer         Deliverer
	RandomSource      io.Reader
	Now               func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.subscriptionStore == nil || builder.deliveryLedger == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			stores, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if stores != nil {
				if builder.subscriptionStore == nil {
					builder.subscriptionStore = stores.SubscriptionStore()
				}
				if builder.deliveryLedger == nil {
					builder.deliveryLedger = stores.DeliveryLedger()
				}
			}
		} else if stores, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.subscriptionStore == nil {
				builder.subscriptionStore = stores.SubscriptionStore()
			}
			if builder.deliveryLedger == nil {
				builder.deliveryLedger = stores.DeliveryLedger()
			}
		}
	}

	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		subscriptionStore: builder.subscriptionStore,
		deliveryLedger:    builder.deliveryLedger,
		deliverer:         builder.deliverer,
		randomSource:      builder.randomSource,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		SubscriptionStore: s.subscriptionStore,
		DeliveryLedger:    s.deliveryLedger,
		Deliverer:         s.deliverer,
		RandomSource:      s.randomSource,
		Now:               s.now,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// requireOrganization validates the tenant context every operation runs
// under. Missing context is an auth failure, not a validation failure.
func (s *Service) requireOrganization(orgID string) (string, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		wrapped := s.errorFactory(
			"core: organization context is required",
			goerrors.CategoryAuth,
		).WithTextCode(WebhookErrorOrgRequired)
		return "", wrapped
	}
	return orgID, nil
}

func (s *Service) clockNow() time.Time {
	if s == nil || s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}
