package service

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/learnboard/learnboard/logger"
	"github.com/learnboard/learnboard/upstream"
	"github.com/learnboard/learnboard/util/common"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// envKeys maps a setting to the environment variables it is read from, in
// order of precedence.
var envKeys = map[string][]string{
	"webListen":        {"LB_LISTEN"},
	"webPort":          {"LB_PORT", "PORT"},
	"webDomain":        {"LB_WEB_DOMAIN"},
	"webCertFile":      {"LB_CERT_FILE"},
	"webKeyFile":       {"LB_KEY_FILE"},
	"secret":           {"LB_SESSION_SECRET"},
	"sessionMaxAge":    {"LB_SESSION_MAX_AGE"},
	"sessionBackend":   {"LB_SESSION_BACKEND"},
	"redisAddr":        {"LB_REDIS_ADDR"},
	"signInURL":        {"LB_SIGNIN_URL"},
	"graphqlURL":       {"LB_GRAPHQL_URL"},
	"upstreamTimeout":  {"LB_UPSTREAM_TIMEOUT"},
	"exposeToken":      {"LB_EXPOSE_TOKEN"},
	"timeLocation":     {"LB_TIME_LOCATION"},
	"sessionCleanupAt": {"LB_SESSION_CLEANUP"},
}

var defaultValueMap = map[string]string{
	"webListen":        "",
	"webPort":          "3000",
	"webDomain":        "",
	"webCertFile":      "",
	"webKeyFile":       "",
	"secret":           "",
	"sessionMaxAge":    "1440",
	"sessionBackend":   BackendMemory,
	"redisAddr":        "",
	"signInURL":        "https://learn.reboot01.com/api/auth/signin",
	"graphqlURL":       "https://learn.reboot01.com/api/graphql-engine/v1/graphql",
	"upstreamTimeout":  "30s",
	"exposeToken":      "false",
	"timeLocation":     "Local",
	"sessionCleanupAt": "@every 1m",
}

var (
	generatedSecret     []byte
	generatedSecretOnce sync.Once
)

// SettingService resolves typed settings from the environment, falling back
// to defaultValueMap.
type SettingService struct{}

func (s *SettingService) getString(key string) (string, error) {
	for _, env := range envKeys[key] {
		if value, ok := os.LookupEnv(env); ok && value != "" {
			return strings.TrimSpace(value), nil
		}
	}
	value, ok := defaultValueMap[key]
	if !ok {
		return "", common.NewErrorf("key <%v> not in defaultValueMap", key)
	}
	return value, nil
}

func (s *SettingService) getBool(key string) (bool, error) {
	str, err := s.getString(key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(str)
}

func (s *SettingService) getInt(key string) (int, error) {
	str, err := s.getString(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(str)
}

func (s *SettingService) GetListen() (string, error) {
	return s.getString("webListen")
}

func (s *SettingService) GetPort() (int, error) {
	return s.getInt("webPort")
}

func (s *SettingService) GetWebDomain() (string, error) {
	return s.getString("webDomain")
}

func (s *SettingService) GetCertFile() (string, error) {
	return s.getString("webCertFile")
}

func (s *SettingService) GetKeyFile() (string, error) {
	return s.getString("webKeyFile")
}

// GetSecret returns the session signing key. Without LB_SESSION_SECRET a
// random key is generated once per process, so sessions do not survive a
// restart.
func (s *SettingService) GetSecret() ([]byte, error) {
	secret, err := s.getString("secret")
	if err != nil {
		return nil, err
	}
	if secret != "" {
		if key, err := hex.DecodeString(secret); err == nil && len(key) >= 32 {
			return key, nil
		}
		return []byte(secret), nil
	}
	generatedSecretOnce.Do(func() {
		logger.Warning("LB_SESSION_SECRET not set, using a random session key")
		generatedSecret = securecookie.GenerateRandomKey(32)
	})
	return generatedSecret, nil
}

// GetSessionMaxAge returns the session lifetime in minutes.
func (s *SettingService) GetSessionMaxAge() (int, error) {
	maxAge, err := s.getInt("sessionMaxAge")
	if err != nil {
		return 0, err
	}
	if maxAge <= 0 {
		return 0, common.NewErrorf("session max age must be positive, got %d", maxAge)
	}
	return maxAge, nil
}

func (s *SettingService) GetSessionBackend() (string, error) {
	backend, err := s.getString("sessionBackend")
	if err != nil {
		return "", err
	}
	backend = strings.ToLower(backend)
	switch backend {
	case BackendMemory, BackendRedis:
		return backend, nil
	default:
		return "", common.NewErrorf("unknown session backend %q", backend)
	}
}

// GetRedisAddr returns the Redis address; empty means an embedded server.
func (s *SettingService) GetRedisAddr() (string, error) {
	return s.getString("redisAddr")
}

func (s *SettingService) GetSignInURL() (string, error) {
	return s.getString("signInURL")
}

func (s *SettingService) GetGraphQLURL() (string, error) {
	return s.getString("graphqlURL")
}

func (s *SettingService) GetUpstreamTimeout() (time.Duration, error) {
	str, err := s.getString("upstreamTimeout")
	if err != nil {
		return 0, err
	}
	timeout, err := time.ParseDuration(str)
	if err != nil {
		return 0, err
	}
	if timeout <= 0 {
		return upstream.DefaultTimeout, nil
	}
	return timeout, nil
}

// GetExposeToken reports whether /api/check-session returns the token.
func (s *SettingService) GetExposeToken() (bool, error) {
	return s.getBool("exposeToken")
}

func (s *SettingService) GetSessionCleanupSpec() (string, error) {
	return s.getString("sessionCleanupAt")
}

func (s *SettingService) GetTimeLocation() (*time.Location, error) {
	l, err := s.getString("timeLocation")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(l)
	if err != nil {
		defaultLocation := defaultValueMap["timeLocation"]
		logger.Errorf("location <%v> not exist, using default location: %v", l, defaultLocation)
		return time.LoadLocation(defaultLocation)
	}
	return location, nil
}

// NewUpstreamClient builds the client for the configured endpoints.
func (s *SettingService) NewUpstreamClient() (*upstream.Client, error) {
	signInURL, err := s.GetSignInURL()
	if err != nil {
		return nil, err
	}
	graphqlURL, err := s.GetGraphQLURL()
	if err != nil {
		return nil, err
	}
	timeout, err := s.GetUpstreamTimeout()
	if err != nil {
		return nil, err
	}
	return upstream.NewClient(signInURL, graphqlURL, timeout), nil
}
