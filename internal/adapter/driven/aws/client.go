package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/diillson/aws-costlens/internal/domain/repository"
)

// globalRegion hospeda os endpoints globais (Cost Explorer, Budgets, STS).
const globalRegion = "us-east-1"

// Options ajusta o cliente AWS.
type Options struct {
	// MaxAttempts é o limite de tentativas do retryer padrão do SDK.
	MaxAttempts int
	// CostExplorerRPS limita as chamadas ao Cost Explorer por perfil.
	CostExplorerRPS float64
	Logger          *zap.Logger
}

// DefaultOptions mirrors the SDK standard retryer with a conservative Cost Explorer rate.
func DefaultOptions() Options {
	return Options{MaxAttempts: 3, CostExplorerRPS: 5}
}

// AWSRepositoryImpl implementa o AWSRepository com cache de configs e clientes.
type AWSRepositoryImpl struct {
	opts        Options
	logger      *zap.Logger
	cfgCache    map[string]aws.Config
	clientCache map[string]interface{}
	limiters    map[string]*rate.Limiter
	regionCache map[string][]string
	mu          sync.Mutex
}

var _ repository.AWSRepository = (*AWSRepositoryImpl)(nil)

// NewAWSRepository cria uma nova implementação do AWSRepository.
func NewAWSRepository(opts Options) *AWSRepositoryImpl {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.CostExplorerRPS <= 0 {
		opts.CostExplorerRPS = def.CostExplorerRPS
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSRepositoryImpl{
		opts:        opts,
		logger:      logger,
		cfgCache:    make(map[string]aws.Config),
		clientCache: make(map[string]interface{}),
		limiters:    make(map[string]*rate.Limiter),
		regionCache: make(map[string][]string),
	}
}

func (r *AWSRepositoryImpl) getAWSConfig(ctx context.Context, profile string) (aws.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg, ok := r.cfgCache[profile]; ok {
		return cfg, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(profile),
		config.WithRetryMaxAttempts(r.opts.MaxAttempts),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config for profile %s: %w", profile, err)
	}

	r.cfgCache[profile] = cfg
	return cfg, nil
}

func (r *AWSRepositoryImpl) getServiceClient(ctx context.Context, profile, region, service string) (interface{}, error) {
	cacheKey := fmt.Sprintf("%s-%s-%s", profile, region, service)

	r.mu.Lock()
	if client, ok := r.clientCache[cacheKey]; ok {
		r.mu.Unlock()
		return client, nil
	}
	r.mu.Unlock()

	cfg, err := r.getAWSConfig(ctx, profile)
	if err != nil {
		return nil, err
	}

	regionalCfg := cfg.Copy()
	if region != "" {
		regionalCfg.Region = region
	}

	var client interface{}
	switch service {
	case "sts":
		client = sts.NewFromConfig(regionalCfg)
	case "ec2":
		client = ec2.NewFromConfig(regionalCfg)
	case "costexplorer":
		regionalCfg.Region = globalRegion
		client = costexplorer.NewFromConfig(regionalCfg)
	case "budgets":
		regionalCfg.Region = globalRegion
		client = budgets.NewFromConfig(regionalCfg)
	case "rds":
		client = rds.NewFromConfig(regionalCfg)
	case "lambda":
		client = lambda.NewFromConfig(regionalCfg)
	case "elbv2":
		client = elasticloadbalancingv2.NewFromConfig(regionalCfg)
	case "cloudwatchlogs":
		client = cloudwatchlogs.NewFromConfig(regionalCfg)
	case "s3":
		client = s3.NewFromConfig(regionalCfg)
	default:
		return nil, fmt.Errorf("unsupported service: %s", service)
	}

	r.mu.Lock()
	r.clientCache[cacheKey] = client
	r.mu.Unlock()

	return client, nil
}

func (r *AWSRepositoryImpl) costExplorer(ctx context.Context, profile string) (*costexplorer.Client, error) {
	client, err := r.getServiceClient(ctx, profile, "", "costexplorer")
	if err != nil {
		return nil, err
	}
	return client.(*costexplorer.Client), nil
}

func (r *AWSRepositoryImpl) ec2Client(ctx context.Context, profile, region string) (*ec2.Client, error) {
	client, err := r.getServiceClient(ctx, profile, region, "ec2")
	if err != nil {
		return nil, err
	}
	return client.(*ec2.Client), nil
}

// waitCostExplorer bloqueia até o limiter do perfil liberar uma chamada.
func (r *AWSRepositoryImpl) waitCostExplorer(ctx context.Context, profile string) error {
	r.mu.Lock()
	limiter, ok := r.limiters[profile]
	if !ok {
		burst := int(r.opts.CostExplorerRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(r.opts.CostExplorerRPS), burst)
		r.limiters[profile] = limiter
	}
	r.mu.Unlock()

	return limiter.Wait(ctx)
}

var profileRegex = regexp.MustCompile(`\[([^]]+)\]`)

// ListProfiles reads profile names from the shared credentials and config files.
func (r *AWSRepositoryImpl) ListProfiles() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return []string{"default"}
	}

	profiles := make(map[string]bool)
	for _, src := range []struct {
		path     string
		isConfig bool
	}{
		{filepath.Join(homeDir, ".aws", "credentials"), false},
		{filepath.Join(homeDir, ".aws", "config"), true},
	} {
		content, err := os.ReadFile(src.path)
		if err != nil {
			continue
		}
		for _, name := range parseProfileNames(string(content), src.isConfig) {
			profiles[name] = true
		}
	}

	if len(profiles) == 0 {
		profiles["default"] = true
	}

	result := make([]string, 0, len(profiles))
	for profile := range profiles {
		result = append(result, profile)
	}
	sort.Strings(result)
	return result
}

// parseProfileNames extrai os nomes das seções de um arquivo INI da AWS.
// No arquivo config as seções usam o prefixo "profile "; sso-session não é perfil.
func parseProfileNames(content string, isConfig bool) []string {
	var names []string
	for _, match := range profileRegex.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if isConfig {
			if strings.HasPrefix(name, "sso-session ") || strings.HasPrefix(name, "services ") {
				continue
			}
			name = strings.TrimPrefix(name, "profile ")
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
