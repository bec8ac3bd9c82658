package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/sirupsen/logrus"

	"github.com/vee-sh/bssm/internal/awsauth"
	"github.com/vee-sh/bssm/internal/logging"
	"github.com/vee-sh/bssm/internal/report"
)

const (
	// PageSize is the registry page size.
	PageSize = 50
	// BatchSize is the most instance IDs sent in one inventory request.
	BatchSize = 100

	NotAvailable    = "N/A"
	UnknownPlatform = "Unknown"
)

// Instance is an SSM-managed EC2 instance that is currently reachable.
type Instance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	State        string    `json:"state"`
	InstanceType string    `json:"instanceType"`
	PrivateIP    string    `json:"privateIp"`
	PublicIP     string    `json:"publicIp"`
	LaunchTime   time.Time `json:"launchTime,omitempty"`
	PingStatus   string    `json:"pingStatus"`
	Platform     string    `json:"platform"`
	PlatformName string    `json:"platformName,omitempty"`
	AgentVersion string    `json:"agentVersion,omitempty"`
}

// Title is the label used in pickers: "name (id)".
func (i Instance) Title() string {
	return i.Name + " (" + i.ID + ")"
}

type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Catalog joins the SSM registry with EC2 inventory.
type Catalog struct {
	Registry  ssm.DescribeInstanceInformationAPIClient
	Inventory EC2API
	Reporter  report.Reporter
}

func New(h awsauth.SessionHandle, rep report.Reporter) *Catalog {
	return &Catalog{
		Registry:  ssm.NewFromConfig(h.Config),
		Inventory: ec2.NewFromConfig(h.Config),
		Reporter:  rep,
	}
}

// registration is what the registry knows about an online instance.
type registration struct {
	ping         string
	platform     string
	platformName string
	agent        string
}

// List returns the online managed instances sorted by name. Query failures
// are reported as warnings and yield an empty list.
func (c *Catalog) List(ctx context.Context) []Instance {
	log := logging.Logger()

	online, order, err := c.online(ctx)
	if err != nil {
		c.warn(ctx, err)
		return []Instance{}
	}
	if len(order) == 0 {
		log.Debug("no online instances in registry")
		c.Reporter.Success("found 0 online instances")
		return []Instance{}
	}

	records := make(map[string]ec2types.Instance, len(order))
	for i, batch := range Batches(order, BatchSize) {
		log.WithFields(logrus.Fields{"batch": i + 1, "size": len(batch)}).Debug("describing instances")
		out, err := c.Inventory.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: batch})
		if err != nil {
			c.warn(ctx, err)
			return []Instance{}
		}
		for _, res := range out.Reservations {
			for _, inst := range res.Instances {
				id := aws.ToString(inst.InstanceId)
				if _, ok := online[id]; ok {
					records[id] = inst
				}
			}
		}
	}

	instances := make([]Instance, 0, len(records))
	for _, id := range order {
		rec, ok := records[id]
		if !ok {
			continue
		}
		instances = append(instances, merge(id, rec, online[id]))
	}
	sort.SliceStable(instances, func(i, j int) bool {
		return strings.ToLower(instances[i].Name) < strings.ToLower(instances[j].Name)
	})

	c.Reporter.Success("found %d online instances", len(instances))
	return instances
}

// online pages through the registry and keeps Online entries in discovery
// order, each ID once.
func (c *Catalog) online(ctx context.Context) (map[string]registration, []string, error) {
	online := map[string]registration{}
	var order []string

	p := ssm.NewDescribeInstanceInformationPaginator(c.Registry, &ssm.DescribeInstanceInformationInput{
		MaxResults: aws.Int32(PageSize),
	})
	page := 0
	for p.HasMorePages() {
		page++
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, nil, err
		}
		logging.Logger().WithFields(logrus.Fields{"page": page, "count": len(out.InstanceInformationList)}).Debug("registry page")
		for _, info := range out.InstanceInformationList {
			if info.PingStatus != ssmtypes.PingStatusOnline {
				continue
			}
			id := aws.ToString(info.InstanceId)
			if id == "" {
				continue
			}
			if _, seen := online[id]; seen {
				continue
			}
			online[id] = registration{
				ping:         string(info.PingStatus),
				platform:     string(info.PlatformType),
				platformName: aws.ToString(info.PlatformName),
				agent:        aws.ToString(info.AgentVersion),
			}
			order = append(order, id)
		}
	}
	return online, order, nil
}

func (c *Catalog) warn(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	logging.Logger().Debugf("instance query failed: %v", err)
	c.Reporter.Warn("could not list instances: %v", err)
}

func merge(id string, rec ec2types.Instance, reg registration) Instance {
	inst := Instance{
		ID:           id,
		Name:         nameTag(rec.Tags, id),
		InstanceType: string(rec.InstanceType),
		PrivateIP:    orNA(aws.ToString(rec.PrivateIpAddress)),
		PublicIP:     orNA(aws.ToString(rec.PublicIpAddress)),
		PingStatus:   reg.ping,
		Platform:     reg.platform,
		PlatformName: reg.platformName,
		AgentVersion: reg.agent,
	}
	if rec.State != nil {
		inst.State = string(rec.State.Name)
	}
	if rec.LaunchTime != nil {
		inst.LaunchTime = *rec.LaunchTime
	}
	if inst.Platform == "" {
		inst.Platform = UnknownPlatform
	}
	return inst
}

func nameTag(tags []ec2types.Tag, fallback string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == "Name" {
			if v := aws.ToString(t.Value); v != "" {
				return v
			}
		}
	}
	return fallback
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// Batches splits ids into consecutive slices of at most size elements.
func Batches(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// Find returns the instance whose ID or name equals query, ignoring case
// for names. An exact ID match wins over a name match.
func Find(instances []Instance, query string) (Instance, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Instance{}, false
	}
	for _, inst := range instances {
		if inst.ID == q {
			return inst, true
		}
	}
	for _, inst := range instances {
		if strings.EqualFold(inst.Name, q) {
			return inst, true
		}
	}
	return Instance{}, false
}
