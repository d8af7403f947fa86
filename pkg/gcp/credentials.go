// Package gcp resolves Google Cloud credentials for the REST clients.
package gcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"voice-tutor-go/internal/config"
	"voice-tutor-go/pkg/log"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ErrNoCredentials means neither explicit nor application default credentials were found.
var ErrNoCredentials = errors.New("google cloud credentials not configured")

// ClientOptions 按顺序解析凭证：环境变量中的 JSON、凭证文件、应用默认凭证。
// endpoint 非空时覆盖服务地址并跳过认证（本地模拟服务使用）。
func ClientOptions(ctx context.Context, cfg config.GoogleConfig, endpoint string) ([]option.ClientOption, error) {
	if endpoint != "" {
		return []option.ClientOption{option.WithEndpoint(endpoint), option.WithoutAuthentication()}, nil
	}

	var opts []option.ClientOption
	if cfg.ProjectID != "" {
		opts = append(opts, option.WithQuotaProject(cfg.ProjectID))
	}

	if cfg.CredentialsJSON != "" {
		creds, err := google.CredentialsFromJSON(ctx, []byte(cfg.CredentialsJSON), cloudPlatformScope)
		if err == nil {
			return append(opts, option.WithCredentials(creds)), nil
		}
		log.Warnf("[GCP] GOOGLE_APPLICATION_CREDENTIALS_JSON 解析失败，尝试其他凭证: %v", err)
	}

	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err == nil {
			creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
			if err != nil {
				return nil, fmt.Errorf("invalid credentials file %s: %w", cfg.CredentialsFile, err)
			}
			return append(opts, option.WithCredentials(creds)), nil
		}
		log.Warnf("[GCP] 凭证文件 %s 不可用: %v", cfg.CredentialsFile, err)
	}

	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return append(opts, option.WithCredentials(creds)), nil
}
