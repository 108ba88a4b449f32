package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Twilio     TwilioConfig
	Scheduling SchedulingConfig
	QA         QAConfig
	Dispatch   DispatchConfig
}

type AppConfig struct {
	Env  string
	Port int

	// CompanyName is spoken in the voice greeting.
	CompanyName string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// WebhookBaseURL is the public URL Twilio calls. Signatures are verified
	// against it; empty disables verification.
	WebhookBaseURL string

	// NumberCompanies maps dialed numbers to companies: "+15550001111=co_1,+15550002222=co_2".
	NumberCompanies string
	// DefaultCompanyID owns calls to numbers missing from NumberCompanies.
	DefaultCompanyID string
}

// SchedulingConfig drives the voice booking flow and the availability calendar.
type SchedulingConfig struct {
	// Timezone resolves "today" for the calendar. IANA name.
	Timezone string

	// WindowCapacity is the per-window capacity of the default template.
	WindowCapacity int

	// TemplateFile optionally points to a YAML window template.
	TemplateFile string

	SessionTTL     time.Duration
	SessionBackend string // memory | redis
	SweepInterval  time.Duration
	MaxRetries     int

	// LedgerBackend selects where booked counts live: postgres | redis | memory.
	LedgerBackend string
}

type QAConfig struct {
	MicronLimit        float64
	RequiredPhotoTypes []string
	HoldbackPercentage int
}

type DispatchConfig struct {
	// TransferNumbers is the raw weighted list, e.g. "+15550001111:3,+15550002222:1".
	TransferNumbers string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.CompanyName = strings.TrimSpace(os.Getenv("COMPANY_NAME"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	{
		n, err := optionalInt("REDIS_DB")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.DB = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.FromNumber = strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER"))
	c.Twilio.WebhookBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("TWILIO_WEBHOOK_BASE_URL")), "/")
	c.Twilio.NumberCompanies = strings.TrimSpace(os.Getenv("TWILIO_NUMBER_COMPANIES"))
	c.Twilio.DefaultCompanyID = strings.TrimSpace(os.Getenv("DEFAULT_COMPANY_ID"))

	c.Scheduling.Timezone = strings.TrimSpace(os.Getenv("SCHEDULE_TIMEZONE"))
	c.Scheduling.TemplateFile = strings.TrimSpace(os.Getenv("SCHEDULE_TEMPLATE_FILE"))
	c.Scheduling.SessionBackend = strings.TrimSpace(os.Getenv("VOICE_SESSION_BACKEND"))
	c.Scheduling.LedgerBackend = strings.TrimSpace(os.Getenv("AVAILABILITY_BACKEND"))
	c.Scheduling.SessionTTL = mustDuration("VOICE_SESSION_TTL")
	c.Scheduling.SweepInterval = mustDuration("VOICE_SWEEP_INTERVAL")
	{
		n, err := optionalInt("SCHEDULE_WINDOW_CAPACITY")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Scheduling.WindowCapacity = n
	}
	{
		n, err := optionalInt("VOICE_MAX_RETRIES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Scheduling.MaxRetries = n
	}

	{
		f, err := optionalFloat("QA_MICRON_LIMIT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.QA.MicronLimit = f
	}
	c.QA.RequiredPhotoTypes = splitList(os.Getenv("QA_REQUIRED_PHOTOS"))
	{
		n, err := optionalInt("HOLDBACK_PERCENTAGE")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.QA.HoldbackPercentage = n
	}

	c.Dispatch.TransferNumbers = strings.TrimSpace(os.Getenv("DISPATCH_TRANSFER_NUMBERS"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills in defaults. It has a pointer
// receiver because defaults are written back.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.CompanyName == "" {
		c.App.CompanyName = "our HVAC team"
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}
	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errs = append(errs, fmt.Errorf("REDIS_DB must be between 0 and 15, got %d", c.Redis.DB))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" || c.Twilio.FromNumber == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required in production"))
		}
		if c.Twilio.WebhookBaseURL == "" {
			errs = append(errs, errors.New("TWILIO_WEBHOOK_BASE_URL is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	errs = append(errs, c.validateScheduling()...)
	errs = append(errs, c.validateQA()...)

	return joinErrors(errs)
}

func (c *Config) validateScheduling() []error {
	var errs []error
	s := &c.Scheduling

	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SCHEDULE_TIMEZONE is not a valid IANA zone: %q", s.Timezone))
	}
	if s.WindowCapacity == 0 {
		s.WindowCapacity = 4
	}
	if s.WindowCapacity < 0 {
		errs = append(errs, fmt.Errorf("SCHEDULE_WINDOW_CAPACITY must be >= 0, got %d", s.WindowCapacity))
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = 10 * time.Minute
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = time.Minute
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 3
	}
	if s.SessionBackend == "" {
		s.SessionBackend = "memory"
		if c.IsProduction() {
			s.SessionBackend = "redis"
		}
	}
	if s.SessionBackend != "memory" && s.SessionBackend != "redis" {
		errs = append(errs, fmt.Errorf("VOICE_SESSION_BACKEND must be memory or redis, got %q", s.SessionBackend))
	}
	if s.LedgerBackend == "" {
		s.LedgerBackend = "postgres"
	}
	switch s.LedgerBackend {
	case "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("AVAILABILITY_BACKEND must be postgres, redis or memory, got %q", s.LedgerBackend))
	}
	return errs
}

func (c *Config) validateQA() []error {
	var errs []error
	q := &c.QA

	if q.MicronLimit == 0 {
		q.MicronLimit = 500
	}
	if q.MicronLimit < 0 {
		errs = append(errs, fmt.Errorf("QA_MICRON_LIMIT must be > 0, got %v", q.MicronLimit))
	}
	if len(q.RequiredPhotoTypes) == 0 {
		q.RequiredPhotoTypes = []string{"before", "after", "equipment"}
	}
	if q.HoldbackPercentage == 0 {
		q.HoldbackPercentage = 10
	}
	if q.HoldbackPercentage < 0 || q.HoldbackPercentage > 100 {
		errs = append(errs, fmt.Errorf("HOLDBACK_PERCENTAGE must be within 0..100, got %d", q.HoldbackPercentage))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Location returns the scheduling timezone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalFloat(key string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
