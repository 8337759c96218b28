package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const (
	EnvVarsPrefix = "/companyinfo/prod/"
	ssmRegion     = "us-east-2"
)

// LoadEnv fills the process environment. In production the variables come
// from AWS SSM Parameter Store, elsewhere from an optional .env file.
func LoadEnv(ctx context.Context) error {
	if os.Getenv("GO_ENV") == EnvProduction {
		return loadProdEnv(ctx)
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func loadProdEnv(ctx context.Context) error {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = ssmRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	params, err := FetchParameters(ctx, ssm.NewFromConfig(cfg), EnvVarsPrefix)
	if err != nil {
		return fmt.Errorf("unable to load prod environment: %w", err)
	}

	for key, value := range params {
		if err = os.Setenv(key, value); err != nil {
			return fmt.Errorf("unable to set environment variable %s: %w", key, err)
		}
	}
	log.Debugf("loaded %d prod environment variables", len(params))
	return nil
}

// FetchParameters reads every parameter under prefix, keyed by the name
// with the prefix removed.
func FetchParameters(ctx context.Context, client ssm.GetParametersByPathAPIClient, prefix string) (map[string]string, error) {
	params := make(map[string]string)

	paginator := ssm.NewGetParametersByPathPaginator(client, &ssm.GetParametersByPathInput{
		Path:           aws.String(prefix),
		WithDecryption: aws.Bool(true),
		Recursive:      aws.Bool(true),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, param := range out.Parameters {
			key := strings.TrimPrefix(aws.ToString(param.Name), prefix)
			if key == "" {
				continue
			}
			params[key] = aws.ToString(param.Value)
		}
	}
	return params, nil
}
