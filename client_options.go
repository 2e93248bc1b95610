package recordops

import "time"

// Storage drivers.
const (
	DriverOpenSearch = "opensearch"
	DriverRedis      = "redis"
)

// ClientOption configures the Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	driver   string
	addrs    []string
	username string
	password string
	redisDB  int

	tls         bool
	insecureTLS bool
	refresh     string
	awsRegion   string
	awsService  string

	instance         string
	readinessTimeout time.Duration
}

// WithOpenSearch connects to an OpenSearch cluster.
func WithOpenSearch(addrs ...string) ClientOption {
	return func(c *clientConfig) {
		c.driver = DriverOpenSearch
		c.addrs = addrs
	}
}

// WithRedis connects to a Redis 8+ instance with the JSON and search modules.
func WithRedis(addrs ...string) ClientOption {
	return func(c *clientConfig) {
		c.driver = DriverRedis
		c.addrs = addrs
	}
}

// WithBasicAuth sets the credentials for either driver.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithRedisDB selects the Redis logical database.
func WithRedisDB(n int) ClientOption {
	return func(c *clientConfig) { c.redisDB = n }
}

// WithAWSSigV4 signs OpenSearch requests with credentials from the AWS
// default chain. Service is "es" for managed domains and "aoss" for
// serverless collections.
func WithAWSSigV4(region, service string) ClientOption {
	return func(c *clientConfig) {
		c.awsRegion = region
		c.awsService = service
	}
}

// WithRefresh sets the OpenSearch refresh policy of writes: "", "true" or
// "wait_for".
func WithRefresh(policy string) ClientOption {
	return func(c *clientConfig) { c.refresh = policy }
}

// WithTLS enables TLS on Redis connections. OpenSearch picks TLS from the
// https scheme of its addresses.
func WithTLS() ClientOption {
	return func(c *clientConfig) { c.tls = true }
}

// WithInsecureTLS skips certificate verification for either driver.
func WithInsecureTLS() ClientOption {
	return func(c *clientConfig) { c.insecureTLS = true }
}

// WithInstance sets the prefix of indexes derived from schema literals.
func WithInstance(name string) ClientOption {
	return func(c *clientConfig) { c.instance = name }
}

// WithReadinessTimeout bounds the wait for the store on New. Default: 10s.
func WithReadinessTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.readinessTimeout = d }
}
