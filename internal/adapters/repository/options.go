package repository

import "github.com/okian/hrdesk/pkg/logger"

// Storage drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

const defaultMongoDatabase = "hrdesk"

type openOptions struct {
	postgresDSN   string
	mongoURI      string
	mongoDatabase string
	instrument    bool
	log           logger.Logger
}

// Option applies a configuration option to Open.
type Option func(*openOptions)

// WithPostgresDSN sets the connection string used by the postgres driver.
func WithPostgresDSN(dsn string) Option {
	return func(o *openOptions) {
		o.postgresDSN = dsn
	}
}

// WithMongoURI sets the connection URI used by the mongo driver.
func WithMongoURI(uri string) Option {
	return func(o *openOptions) {
		o.mongoURI = uri
	}
}

// WithMongoDatabase sets the database holding the mongo collections.
func WithMongoDatabase(name string) Option {
	return func(o *openOptions) {
		if name != "" {
			o.mongoDatabase = name
		}
	}
}

// WithMetrics wraps every collection with latency and error metrics.
func WithMetrics(enabled bool) Option {
	return func(o *openOptions) {
		o.instrument = enabled
	}
}

// WithLogger sets the logger used while opening and closing the store.
func WithLogger(l logger.Logger) Option {
	return func(o *openOptions) {
		if l != nil {
			o.log = l
		}
	}
}
