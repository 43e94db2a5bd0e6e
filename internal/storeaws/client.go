// Package storeaws implements pkg/store.Store on AWS SSM Parameter Store.
//
// Parameter Store is the platform's authoritative hierarchical key-value
// store: slash-delimited paths, per-path monotonically increasing versions,
// and KMS-encrypted SecureString parameters for Secret-classified values.
package storeaws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/systmms/confres/internal/logging"
	"github.com/systmms/confres/pkg/store"
)

// SSMAPI is the subset of the SSM client the store uses. Narrowed to an
// interface so tests can substitute a fake without AWS credentials.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// Config holds SSM connection settings.
type Config struct {
	Region     string
	Profile    string
	AssumeRole string
}

// Client implements store.Store against SSM Parameter Store.
type Client struct {
	api    SSMAPI
	logger *logging.Logger
}

// stdRetry is the SDK's standard retryability classifier: throttling,
// timeouts, connection failures, and 5xx responses count as retryable.
var stdRetry = retry.NewStandard()

// wrapErr annotates a failed SSM call. Failures the SDK considers retryable
// come back as store.TransientError so callers can branch on the type
// instead of matching message text; everything else (auth, validation) is a
// plain wrap and is never retried.
func wrapErr(op, path string, err error) error {
	wrapped := fmt.Errorf("ssm %s %s: %w", op, path, err)
	if stdRetry.IsErrorRetryable(err) {
		return store.TransientError{Op: op, Err: wrapped}
	}
	return wrapped
}

// Option configures a Client.
type Option func(*Client)

// WithSSMClient sets a custom SSM client (for testing).
func WithSSMClient(api SSMAPI) Option {
	return func(c *Client) { c.api = api }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an SSM-backed store client. When cfg.AssumeRole is set, calls
// are made with temporary credentials from STS.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.New(false, false)
	}

	if c.api == nil {
		api, err := createSSMClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		c.api = api
	}

	return c, nil
}

func createSSMClient(ctx context.Context, cfg Config) (*ssm.Client, error) {
	var configOpts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.AssumeRole != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		awsCfg.Credentials = aws.NewCredentialsCache(
			stscreds.NewAssumeRoleProvider(stsClient, cfg.AssumeRole, func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = fmt.Sprintf("confres-%d", time.Now().Unix())
			}),
		)
	}

	return ssm.NewFromConfig(awsCfg), nil
}

// Get implements store.Store. A missing parameter is found=false with a nil
// error; every other failure is returned as-is for the caller's retry
// policy.
func (c *Client) Get(ctx context.Context, path string) (store.Parameter, bool, error) {
	c.logger.Debug("ssm get %s", path)

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isParameterNotFound(err) {
			return store.Parameter{}, false, nil
		}
		return store.Parameter{}, false, wrapErr("get", path, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil {
		return store.Parameter{}, false, fmt.Errorf("ssm get %s: response has no parameter value", path)
	}

	return fromSSMParameter(*out.Parameter), true, nil
}

// Put implements store.Store. Secret-classified values are written as
// SecureString so they are KMS-encrypted at rest.
func (c *Client) Put(ctx context.Context, path, value string, class store.Classification) (int64, error) {
	paramType := types.ParameterTypeString
	if class == store.Secret {
		paramType = types.ParameterTypeSecureString
	}

	out, err := c.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Type:      paramType,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return 0, wrapErr("put", path, err)
	}

	return out.Version, nil
}

// ListByPrefix implements store.Store using GetParametersByPath pagination.
// SSM matches whole hierarchy levels, so the prefix is truncated to its
// last complete path segment before listing.
func (c *Client) ListByPrefix(ctx context.Context, prefix, pageToken string) ([]store.Parameter, string, error) {
	input := &ssm.GetParametersByPathInput{
		Path:           aws.String(listablePath(prefix)),
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	}
	if pageToken != "" {
		input.NextToken = aws.String(pageToken)
	}

	out, err := c.api.GetParametersByPath(ctx, input)
	if err != nil {
		return nil, "", wrapErr("list", prefix, err)
	}

	var page []store.Parameter
	for _, p := range out.Parameters {
		param := fromSSMParameter(p)
		// the listable path can be broader than the requested prefix
		if strings.HasPrefix(param.Path, prefix) {
			page = append(page, param)
		}
	}

	next := ""
	if out.NextToken != nil {
		next = *out.NextToken
	}
	return page, next, nil
}

// Delete implements store.Store.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.api.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(path),
	})
	if err != nil {
		if isParameterNotFound(err) {
			return store.NotFoundError{Path: path}
		}
		return wrapErr("delete", path, err)
	}
	return nil
}

func fromSSMParameter(p types.Parameter) store.Parameter {
	param := store.Parameter{
		Version: p.Version,
	}
	if p.Name != nil {
		param.Path = *p.Name
	}
	if p.Value != nil {
		param.Value = *p.Value
	}
	if p.LastModifiedDate != nil {
		param.LastModified = *p.LastModifiedDate
	}
	if p.Type == types.ParameterTypeSecureString {
		param.Classification = store.Secret
	}
	return param
}

// listablePath truncates prefix to its last complete hierarchy level, since
// GetParametersByPath cannot match partial segment names.
func listablePath(prefix string) string {
	trimmed := strings.TrimSuffix(prefix, "/")
	if strings.HasSuffix(prefix, "/") {
		return trimmed
	}
	if idx := strings.LastIndex(trimmed, "/"); idx > 0 {
		return trimmed[:idx]
	}
	return trimmed
}

func isParameterNotFound(err error) bool {
	var notFound *types.ParameterNotFound
	return errors.As(err, &notFound)
}
