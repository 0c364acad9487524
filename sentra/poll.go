package sentra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/graph"
	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// maxCataloguePages bounds pagination per device type. A vendor bug that
// loops the next link must not poll forever.
const maxCataloguePages = 50

// PollStatus says how complete a poll was.
type PollStatus string

// Poll outcomes.
const (
	// PollClean means every endpoint answered.
	PollClean PollStatus = "clean"

	// PollDegraded means at least one device-type endpoint failed and its
	// devices are absent from the result.
	PollDegraded PollStatus = "degraded"
)

// PollResult is one full-account fetch.
type PollResult struct {
	// Graph holds every resource the poll saw, primary and included.
	Graph *graph.Graph

	// Devices are the projected catalogue entries, in endpoint walk order.
	Devices []*device.Device

	// Status is clean or degraded.
	Status PollStatus

	// Skipped names the endpoints or resources the poll had to leave out,
	// with the reason.
	Skipped []string

	// FetchedAt stamps the poll.
	FetchedAt time.Time
}

// FetchAll polls the whole account: identity, systems, then each device
// catalogue with pagination. Concurrent callers coalesce onto a single
// in-flight poll and share its result; the shared poll runs under the
// first caller's context.
//
// Identity failures and authentication failures abort the poll. A failed
// device-type endpoint only degrades it. Cancellation aborts: a cancelled
// poll returns an error and no partial state.
func (c *Client) FetchAll(ctx context.Context) (*PollResult, error) {
	v, err, _ := c.pollGroup.Do("fetch-all", func() (any, error) {
		return c.fetchAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	res, ok := v.(*PollResult)
	if !ok {
		return nil, fmt.Errorf("sentra: unexpected poll result type %T", v)
	}
	return res, nil
}

func (c *Client) fetchAll(ctx context.Context) (*PollResult, error) {
	started := time.Now()
	g := graph.New()
	var skipped []string

	// Identity first. Without it the session is unusable, so this failure
	// is fatal rather than degrading.
	idDoc, err := c.Identities(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentra: poll identity: %w", err)
	}
	g.Add(idDoc)

	for _, t := range pollOrder {
		if err := c.fetchCatalogue(ctx, g, t); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrAuthExpired) {
				return nil, err
			}
			c.logger.Warn("device catalogue fetch failed",
				"type", string(t),
				"error", err)
			skipped = append(skipped, fmt.Sprintf("%s: %v", t, err))
		}
	}

	devices := projectCatalogue(g, started, &skipped)

	status := PollClean
	if len(skipped) > 0 {
		status = PollDegraded
	}
	c.logger.Debug("poll complete",
		"resources", g.Len(),
		"devices", len(devices),
		"status", string(status),
		"elapsed", time.Since(started))

	return &PollResult{
		Graph:     g,
		Devices:   devices,
		Status:    status,
		Skipped:   skipped,
		FetchedAt: started,
	}, nil
}

// fetchCatalogue pulls every page of one device type into the graph.
func (c *Client) fetchCatalogue(ctx context.Context, g *graph.Graph, t device.Type) error {
	page := 0
	for attempt := 0; attempt < maxCataloguePages; attempt++ {
		doc, err := c.DevicesOfType(ctx, t, page)
		if err != nil {
			return err
		}
		g.Add(doc)

		next := doc.Links.Next()
		if next == "" {
			return nil
		}
		n, ok := jsonapi.PageNumberFromLink(next)
		if !ok || n <= page {
			return nil
		}
		page = n
	}
	return fmt.Errorf("sentra: %s pagination exceeded %d pages", t, maxCataloguePages)
}

// projectCatalogue turns every projectable graph resource into a Device,
// walking types in endpoint order for stable output.
func projectCatalogue(g *graph.Graph, now time.Time, skipped *[]string) []*device.Device {
	var devices []*device.Device
	for _, t := range pollOrder {
		for _, res := range g.OfType(t.ResourceType()) {
			d, ok := device.Project(res, now)
			if !ok {
				*skipped = append(*skipped, fmt.Sprintf("%s/%s: not projectable", res.Type, res.ID))
				continue
			}
			devices = append(devices, d)
		}
	}
	return devices
}
