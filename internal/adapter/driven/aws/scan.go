package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdsTypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"go.uber.org/zap"

	"github.com/diillson/aws-costlens/internal/domain/entity"
)

// detector coleta os ids de uma categoria numa região.
type detector struct {
	category entity.ScanCategory
	run      func(ctx context.Context, profile, region string) ([]string, error)
}

func (r *AWSRepositoryImpl) detectors() []detector {
	return []detector{
		{entity.ScanStoppedInstances, r.stoppedInstances},
		{entity.ScanUnusedVolumes, r.unusedVolumes},
		{entity.ScanUnusedEIPs, r.unusedEIPs},
		{entity.ScanUntaggedEC2, r.untaggedEC2},
		{entity.ScanUntaggedRDS, r.untaggedRDS},
		{entity.ScanUntaggedLambda, r.untaggedLambda},
		{entity.ScanIdleLoadBalancers, r.idleLoadBalancers},
		{entity.ScanLogGroupsNoRetention, r.logGroupsWithoutRetention},
	}
}

// ScanResources runs every detector in every region. A failing detector is
// reported for its region and the others still run.
func (r *AWSRepositoryImpl) ScanResources(ctx context.Context, profile string, regions []string) (map[entity.ScanCategory]entity.RegionFindings, []*entity.RunError) {
	findings := make(map[entity.ScanCategory]entity.RegionFindings)
	var errs []*entity.RunError
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, region := range regions {
		for _, d := range r.detectors() {
			wg.Add(1)
			go func(rgn string, d detector) {
				defer wg.Done()
				ids, err := d.run(ctx, profile, rgn)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					r.logger.Warn("scan detector failed",
						zap.String("profile", profile),
						zap.String("region", rgn),
						zap.String("detector", string(d.category)),
						zap.Error(err))
					errs = append(errs, entity.NewRunError(entity.KindPartialFetchFailure, profile, rgn, nil,
						fmt.Errorf("%s: %w", d.category, err)))
					return
				}
				if len(ids) == 0 {
					return
				}
				if findings[d.category] == nil {
					findings[d.category] = make(entity.RegionFindings)
				}
				findings[d.category][rgn] = ids
			}(region, d)
		}
	}
	wg.Wait()
	return findings, errs
}

func (r *AWSRepositoryImpl) describeInstances(ctx context.Context, profile, region string, filters []ec2Types.Filter) ([]ec2Types.Instance, error) {
	client, err := r.ec2Client(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	var instances []ec2Types.Instance
	p := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{Filters: filters})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, res := range page.Reservations {
			instances = append(instances, res.Instances...)
		}
	}
	return instances, nil
}

func (r *AWSRepositoryImpl) stoppedInstances(ctx context.Context, profile, region string) ([]string, error) {
	instances, err := r.describeInstances(ctx, profile, region, []ec2Types.Filter{
		{Name: aws.String("instance-state-name"), Values: []string{"stopped"}},
	})
	if err != nil {
		return nil, err
	}
	return stoppedInstanceIDs(instances), nil
}

func (r *AWSRepositoryImpl) untaggedEC2(ctx context.Context, profile, region string) ([]string, error) {
	instances, err := r.describeInstances(ctx, profile, region, nil)
	if err != nil {
		return nil, err
	}
	return untaggedInstanceIDs(instances), nil
}

func (r *AWSRepositoryImpl) unusedVolumes(ctx context.Context, profile, region string) ([]string, error) {
	client, err := r.ec2Client(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	var volumes []ec2Types.Volume
	p := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{
		Filters: []ec2Types.Filter{{Name: aws.String("status"), Values: []string{"available"}}},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		volumes = append(volumes, page.Volumes...)
	}
	return availableVolumeIDs(volumes), nil
}

func (r *AWSRepositoryImpl) unusedEIPs(ctx context.Context, profile, region string) ([]string, error) {
	client, err := r.ec2Client(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, err
	}
	return unassociatedAddresses(out.Addresses), nil
}

func (r *AWSRepositoryImpl) untaggedRDS(ctx context.Context, profile, region string) ([]string, error) {
	client, err := r.getServiceClient(ctx, profile, region, "rds")
	if err != nil {
		return nil, err
	}
	var dbs []rdsTypes.DBInstance
	p := rds.NewDescribeDBInstancesPaginator(client.(*rds.Client), &rds.DescribeDBInstancesInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		dbs = append(dbs, page.DBInstances...)
	}
	return untaggedDBInstances(dbs), nil
}

func (r *AWSRepositoryImpl) untaggedLambda(ctx context.Context, profile, region string) ([]string, error) {
	client, err := r.getServiceClient(ctx, profile, region, "lambda")
	if err != nil {
		return nil, err
	}
	lambdaClient := client.(*lambda.Client)

	var untagged []string
	p := lambda.NewListFunctionsPaginator(lambdaClient, &lambda.ListFunctionsInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, fn := range page.Functions {
			tags, err := lambdaClient.ListTags(ctx, &lambda.ListTagsInput{Resource: fn.FunctionArn})
			if err != nil {
				return nil, err
			}
			if len(tags.Tags) == 0 {
				untagged = append(untagged, aws.ToString(fn.FunctionName))
			}
		}
	}
	return untagged, nil
}

// idleLoadBalancers returns load balancers (v2) with no registered targets.
func (r *AWSRepositoryImpl) idleLoadBalancers(ctx context.Context, profile, region string) ([]string, error) {
	client, err := r.getServiceClient(ctx, profile, region, "elbv2")
	if err != nil {
		return nil, err
	}
	elbv2Client := client.(*elasticloadbalancingv2.Client)

	var idle []string
	p := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(elbv2Client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, lb := range page.LoadBalancers {
			tgOutput, err := elbv2Client.DescribeTargetGroups(ctx, &elasticloadbalancingv2.DescribeTargetGroupsInput{
				LoadBalancerArn: lb.LoadBalancerArn,
			})
			if err != nil {
				return nil, err
			}

			targets := make([]int, 0, len(tgOutput.TargetGroups))
			for _, tg := range tgOutput.TargetGroups {
				health, err := elbv2Client.DescribeTargetHealth(ctx, &elasticloadbalancingv2.DescribeTargetHealthInput{
					TargetGroupArn: tg.TargetGroupArn,
				})
				if err != nil {
					return nil, err
				}
				targets = append(targets, len(health.TargetHealthDescriptions))
			}
			if loadBalancerIdle(targets) {
				idle = append(idle, aws.ToString(lb.LoadBalancerName))
			}
		}
	}
	return idle, nil
}

func (r *AWSRepositoryImpl) logGroupsWithoutRetention(ctx context.Context, profile, region string) ([]string, error) {
	groups, err := r.logGroups(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return neverExpiringGroups(groups), nil
}

func (r *AWSRepositoryImpl) logGroups(ctx context.Context, profile, region string) ([]entity.LogGroupInfo, error) {
	client, err := r.getServiceClient(ctx, profile, region, "cloudwatchlogs")
	if err != nil {
		return nil, err
	}

	var result []entity.LogGroupInfo
	p := cloudwatchlogs.NewDescribeLogGroupsPaginator(client.(*cloudwatchlogs.Client), &cloudwatchlogs.DescribeLogGroupsInput{
		Limit: aws.Int32(50),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, lg := range page.LogGroups {
			result = append(result, entity.LogGroupInfo{
				GroupName:     aws.ToString(lg.LogGroupName),
				Region:        region,
				StoredBytes:   aws.ToInt64(lg.StoredBytes),
				RetentionDays: int(aws.ToInt32(lg.RetentionInDays)),
			})
		}
	}
	return result, nil
}

func stoppedInstanceIDs(instances []ec2Types.Instance) []string {
	var ids []string
	for _, inst := range instances {
		if inst.State != nil && inst.State.Name == ec2Types.InstanceStateNameStopped {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	return ids
}

// untaggedInstanceIDs ignora instâncias já terminadas, que somem sozinhas.
func untaggedInstanceIDs(instances []ec2Types.Instance) []string {
	var ids []string
	for _, inst := range instances {
		if inst.State != nil && inst.State.Name == ec2Types.InstanceStateNameTerminated {
			continue
		}
		if len(inst.Tags) == 0 {
			ids = append(ids, aws.ToString(inst.InstanceId))
		}
	}
	return ids
}

func availableVolumeIDs(volumes []ec2Types.Volume) []string {
	var ids []string
	for _, vol := range volumes {
		if vol.State == ec2Types.VolumeStateAvailable && len(vol.Attachments) == 0 {
			ids = append(ids, aws.ToString(vol.VolumeId))
		}
	}
	return ids
}

func unassociatedAddresses(addresses []ec2Types.Address) []string {
	var ips []string
	for _, addr := range addresses {
		if addr.AssociationId == nil {
			ips = append(ips, aws.ToString(addr.PublicIp))
		}
	}
	return ips
}

func untaggedDBInstances(dbs []rdsTypes.DBInstance) []string {
	var ids []string
	for _, db := range dbs {
		if len(db.TagList) == 0 {
			ids = append(ids, aws.ToString(db.DBInstanceIdentifier))
		}
	}
	return ids
}

// loadBalancerIdle recebe a contagem de targets de cada target group do LB.
func loadBalancerIdle(targetsPerGroup []int) bool {
	for _, n := range targetsPerGroup {
		if n > 0 {
			return false
		}
	}
	return true
}

func neverExpiringGroups(groups []entity.LogGroupInfo) []string {
	var names []string
	for _, g := range groups {
		if g.NeverExpires() {
			names = append(names, g.GroupName)
		}
	}
	return names
}
