package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMParameterEnv names the parameter holding the YAML document.
const SSMParameterEnv = "EALS_SSM_PARAMETER"

// LoadFromEnvironment uses the SSM parameter named by EALS_SSM_PARAMETER
// when it is set and the YAML file at path otherwise.
func LoadFromEnvironment(ctx context.Context, path string) (*Config, error) {
	if name := os.Getenv(SSMParameterEnv); name != "" {
		return LoadFromSSM(ctx, name)
	}
	return Load(path)
}

// LoadFromSSM reads the YAML document from a decrypted SSM parameter.
func LoadFromSSM(ctx context.Context, paramName string) (*Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := ssm.NewFromConfig(awsCfg)

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get parameter: %w", err)
	}

	cfg := &Config{}
	if err := Parse([]byte(aws.ToString(out.Parameter.Value)), cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return finish(cfg)
}
