package config

import "time"

type Config struct {
	Debug     bool      `mapstructure:"debug"`
	Log       Log       `mapstructure:"log"`
	Server    Server    `mapstructure:"server"`
	Auth      Auth      `mapstructure:"auth"`
	Database  Database  `mapstructure:"database"`
	Media     Media     `mapstructure:"media"`
	Rebuild   Rebuild   `mapstructure:"rebuild"`
	Mail      Mail      `mapstructure:"mail"`
	KeepAlive KeepAlive `mapstructure:"keepalive"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

type Server struct {
	Address          string        `mapstructure:"address" validate:"required,hostname|ip"`
	Port             int           `mapstructure:"port" validate:"min=0,max=65535"`
	PublicUrl        string        `mapstructure:"public_url" validate:"omitempty,url"`
	CorsAllowOrigins []string      `mapstructure:"cors_allow_origins" validate:"dive,url"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	Limits           ServerLimits  `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxJsonBody       uint `mapstructure:"max_json_body" validate:"required"`
	MaxFileSize       uint `mapstructure:"max_file_size" validate:"required"`
	MaxFiles          int  `mapstructure:"max_files" validate:"required,min=1,max=10"`
	StrictUploads     bool `mapstructure:"strict_uploads"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" validate:"min=0"`
}

type Auth struct {
	JwtSecret string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	JwtTTL    time.Duration `mapstructure:"jwt_ttl"`
}

type Database struct {
	Driver  string `mapstructure:"driver" validate:"required,oneof=mysql postgres memory"`
	DSN     string `mapstructure:"dsn" validate:"required_unless=Driver memory"`
	Migrate bool   `mapstructure:"migrate"`
}

type Media struct {
	Strategy             string                   `mapstructure:"strategy" validate:"required,oneof=s3 filesystem noop"`
	S3                   *S3MediaStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem           *FilesystemMediaStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	PublicBaseUrl        string                   `mapstructure:"public_base_url" validate:"omitempty,url"`
	TargetWidth          int                      `mapstructure:"target_width" validate:"required,min=16,max=8192"`
	Quality              int                      `mapstructure:"quality" validate:"required,min=1,max=100"`
	AcceptedMimePrefixes []string                 `mapstructure:"accepted_mime_prefixes" validate:"required,min=1,dive,mimeprefix"`
	ProjectKeyPattern    string                   `mapstructure:"project_key_pattern" validate:"omitempty,pathpattern"`
	StudioKeyPattern     string                   `mapstructure:"studio_key_pattern" validate:"omitempty,pathpattern"`
}

type S3MediaStrategy struct {
	AccessKeyId    string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId    string `mapstructure:"secret_key_id" validate:"required"`
	Region         string `mapstructure:"region" validate:"required"`
	Bucket         string `mapstructure:"bucket" validate:"required"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	DisableSSL     bool   `mapstructure:"disable_ssl"`
}

type FilesystemMediaStrategy struct {
	Path string `mapstructure:"path" validate:"required,abspath"`
}

type Rebuild struct {
	Strategy   string                     `mapstructure:"strategy" validate:"required,oneof=github cloudflare noop"`
	Debounce   time.Duration              `mapstructure:"debounce"`
	Reason     string                     `mapstructure:"reason"`
	Github     *GithubRebuildStrategy     `mapstructure:"github" validate:"required_if=Strategy github"`
	Cloudflare *CloudflareRebuildStrategy `mapstructure:"cloudflare" validate:"required_if=Strategy cloudflare"`
}

type GithubRebuildStrategy struct {
	Owner   string `mapstructure:"owner" validate:"required"`
	Repo    string `mapstructure:"repo" validate:"required"`
	Token   string `mapstructure:"token" validate:"required"`
	BaseUrl string `mapstructure:"base_url" validate:"omitempty,url"`
}

type CloudflareRebuildStrategy struct {
	AccountID string `mapstructure:"account_id" validate:"required"`
	Project   string `mapstructure:"project" validate:"required"`
	APIToken  string `mapstructure:"api_token" validate:"required"`
	Branch    string `mapstructure:"branch"`
	Endpoint  string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type Mail struct {
	Smtp *Smtp `mapstructure:"smtp"`
	Imap *Imap `mapstructure:"imap"`
}

type Smtp struct {
	Host      string        `mapstructure:"host" validate:"required,hostname|ip"`
	Port      int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	From      string        `mapstructure:"from" validate:"required,email"`
	FromName  string        `mapstructure:"from_name"`
	To        string        `mapstructure:"to" validate:"required,email"`
	TLSPolicy string        `mapstructure:"tls_policy" validate:"omitempty,oneof=mandatory opportunistic none"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type Imap struct {
	Host     string `mapstructure:"host" validate:"required,hostname|ip"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Mailbox  string `mapstructure:"mailbox"`
}

type KeepAlive struct {
	Schedule string `mapstructure:"schedule"`
}
