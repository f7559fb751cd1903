package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"
)

var defaultRegions = []string{"us-east-1", "us-east-2", "us-west-1", "us-west-2", "eu-west-1", "eu-central-1"}

// ResolveIdentity returns the account id behind the profile credentials.
func (r *AWSRepositoryImpl) ResolveIdentity(ctx context.Context, profile string) (string, error) {
	client, err := r.getServiceClient(ctx, profile, globalRegion, "sts")
	if err != nil {
		return "", err
	}
	stsClient := client.(*sts.Client)

	result, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("error getting account ID for profile %s: %w", profile, err)
	}
	return aws.ToString(result.Account), nil
}

// AccessibleRegions lists the regions enabled for the account. When the
// lookup is denied it falls back to a fixed set of common regions.
func (r *AWSRepositoryImpl) AccessibleRegions(ctx context.Context, profile string) ([]string, error) {
	r.mu.Lock()
	cached, ok := r.regionCache[profile]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	ec2Client, err := r.ec2Client(ctx, profile, globalRegion)
	if err != nil {
		return defaultRegions, fmt.Errorf("could not create EC2 client to list regions: %w", err)
	}

	regionsOutput, err := ec2Client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(false)})
	if err != nil {
		r.logger.Warn("describe regions failed, using defaults", zap.String("profile", profile), zap.Error(err))
		return defaultRegions, nil
	}

	regions := make([]string, 0, len(regionsOutput.Regions))
	for _, region := range regionsOutput.Regions {
		regions = append(regions, aws.ToString(region.RegionName))
	}

	r.mu.Lock()
	r.regionCache[profile] = regions
	r.mu.Unlock()
	return regions, nil
}
