package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// resourceKind identifica qual API de tags atende um RESOURCE_ID do Cost Explorer.
type resourceKind int

const (
	kindUnknown resourceKind = iota
	kindEC2
	kindRDS
	kindLambda
	kindELB
	kindS3
)

// ec2Prefixes são os ids que o EC2 DescribeTags resolve.
var ec2Prefixes = []string{"i-", "vol-", "eipalloc-", "nat-", "snap-", "ami-", "eni-", "vpce-"}

// classifyResource infers the tagging API and region for a resource id.
// ARNs carry their own region; bare ids inherit fallbackRegion.
func classifyResource(resourceID, fallbackRegion string) (resourceKind, string) {
	if strings.HasPrefix(resourceID, "arn:") {
		parts := strings.SplitN(resourceID, ":", 6)
		if len(parts) < 6 {
			return kindUnknown, ""
		}
		region := parts[3]
		switch parts[2] {
		case "rds":
			return kindRDS, region
		case "lambda":
			return kindLambda, region
		case "elasticloadbalancing":
			return kindELB, region
		case "ec2":
			return kindEC2, region
		case "s3":
			return kindS3, region
		}
		return kindUnknown, region
	}
	for _, prefix := range ec2Prefixes {
		if strings.HasPrefix(resourceID, prefix) {
			return kindEC2, fallbackRegion
		}
	}
	// S3 aparece no Cost Explorer pelo nome do bucket.
	if resourceID != "" && !strings.ContainsAny(resourceID, "/: ") {
		return kindS3, fallbackRegion
	}
	return kindUnknown, fallbackRegion
}

// LookupTags returns the tags of one resource. found=false means the resource
// type is not supported or the resource no longer exists.
func (r *AWSRepositoryImpl) LookupTags(ctx context.Context, ref entity.ResourceRef) (map[string]string, bool, error) {
	kind, region := classifyResource(ref.ResourceID, ref.Region)

	switch kind {
	case kindEC2:
		return r.lookupEC2Tags(ctx, ref.Profile, region, ec2ResourceID(ref.ResourceID))
	case kindRDS:
		return r.lookupRDSTags(ctx, ref.Profile, region, ref.ResourceID)
	case kindLambda:
		return r.lookupLambdaTags(ctx, ref.Profile, region, ref.ResourceID)
	case kindELB:
		return r.lookupELBTags(ctx, ref.Profile, region, ref.ResourceID)
	case kindS3:
		return r.lookupS3Tags(ctx, ref.Profile, s3BucketName(ref.ResourceID))
	default:
		return nil, false, nil
	}
}

// ec2ResourceID reduz um ARN de EC2 ao id (arn:...:instance/i-123 -> i-123).
func ec2ResourceID(id string) string {
	if i := strings.LastIndex(id, "/"); strings.HasPrefix(id, "arn:") && i >= 0 {
		return id[i+1:]
	}
	return id
}

func s3BucketName(id string) string {
	if strings.HasPrefix(id, "arn:") {
		parts := strings.SplitN(id, ":", 6)
		return parts[len(parts)-1]
	}
	return id
}

func (r *AWSRepositoryImpl) lookupEC2Tags(ctx context.Context, profile, region, resourceID string) (map[string]string, bool, error) {
	regions := []string{region}
	if region == entity.AllRegions {
		// Sem região no item, procura nas regiões habilitadas da conta.
		var err error
		regions, err = r.AccessibleRegions(ctx, profile)
		if err != nil {
			return nil, false, err
		}
	}

	for _, rgn := range regions {
		client, err := r.ec2Client(ctx, profile, rgn)
		if err != nil {
			return nil, false, err
		}
		out, err := client.DescribeTags(ctx, &ec2.DescribeTagsInput{
			Filters: []ec2Types.Filter{{Name: aws.String("resource-id"), Values: []string{resourceID}}},
		})
		if err != nil {
			return nil, false, fmt.Errorf("describe tags for %s in %s: %w", resourceID, rgn, err)
		}
		if len(out.Tags) == 0 {
			continue
		}
		tags := make(map[string]string, len(out.Tags))
		for _, t := range out.Tags {
			tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
		return tags, true, nil
	}
	return nil, false, nil
}

func (r *AWSRepositoryImpl) lookupRDSTags(ctx context.Context, profile, region, arn string) (map[string]string, bool, error) {
	client, err := r.getServiceClient(ctx, profile, region, "rds")
	if err != nil {
		return nil, false, err
	}
	out, err := client.(*rds.Client).ListTagsForResource(ctx, &rds.ListTagsForResourceInput{ResourceName: aws.String(arn)})
	if err != nil {
		return notFoundOr(err, "list rds tags")
	}
	tags := make(map[string]string, len(out.TagList))
	for _, t := range out.TagList {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, true, nil
}

func (r *AWSRepositoryImpl) lookupLambdaTags(ctx context.Context, profile, region, arn string) (map[string]string, bool, error) {
	client, err := r.getServiceClient(ctx, profile, region, "lambda")
	if err != nil {
		return nil, false, err
	}
	out, err := client.(*lambda.Client).ListTags(ctx, &lambda.ListTagsInput{Resource: aws.String(arn)})
	if err != nil {
		return notFoundOr(err, "list lambda tags")
	}
	return out.Tags, true, nil
}

func (r *AWSRepositoryImpl) lookupELBTags(ctx context.Context, profile, region, arn string) (map[string]string, bool, error) {
	client, err := r.getServiceClient(ctx, profile, region, "elbv2")
	if err != nil {
		return nil, false, err
	}
	out, err := client.(*elasticloadbalancingv2.Client).DescribeTags(ctx, &elasticloadbalancingv2.DescribeTagsInput{
		ResourceArns: []string{arn},
	})
	if err != nil {
		return notFoundOr(err, "describe load balancer tags")
	}
	if len(out.TagDescriptions) == 0 {
		return nil, false, nil
	}
	tags := make(map[string]string)
	for _, t := range out.TagDescriptions[0].Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, true, nil
}

func (r *AWSRepositoryImpl) lookupS3Tags(ctx context.Context, profile, bucket string) (map[string]string, bool, error) {
	client, err := r.getServiceClient(ctx, profile, globalRegion, "s3")
	if err != nil {
		return nil, false, err
	}
	out, err := client.(*s3.Client).GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		return notFoundOr(err, "get bucket tagging")
	}
	tags := make(map[string]string, len(out.TagSet))
	for _, t := range out.TagSet {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags, true, nil
}

// notFoundCodes são respostas que significam "sem dado de tag", não falha.
var notFoundCodes = map[string]bool{
	"NoSuchTagSet":              true,
	"NoSuchBucket":              true,
	"DBInstanceNotFound":        true,
	"DBClusterNotFoundFault":    true,
	"ResourceNotFoundException": true,
	"LoadBalancerNotFound":      true,
}

func notFoundOr(err error, op string) (map[string]string, bool, error) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && notFoundCodes[apiErr.ErrorCode()] {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%s: %w", op, err)
}
