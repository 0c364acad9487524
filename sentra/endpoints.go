package sentra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nerrad567/sentra-bridge/device"
	"github.com/nerrad567/sentra-bridge/jsonapi"
)

// API paths, relative to the portal root. A trailing id segment fetches a
// single resource; without one the endpoint lists everything the session
// can see.
const (
	pathIdentities   = "web/api/identities"
	pathSystems      = "web/api/systems/systems"
	pathPartitions   = "web/api/devices/partitions"
	pathSensors      = "web/api/devices/sensors"
	pathLocks        = "web/api/devices/locks"
	pathLights       = "web/api/devices/lights"
	pathGarageDoors  = "web/api/devices/garageDoors"
	pathThermostats  = "web/api/devices/thermostats"
	pathWaterSensors = "web/api/devices/waterSensors"
	pathCameras      = "web/api/video/cameras"
	pathWSToken      = "web/api/websockets/token"
)

// devicePaths maps each catalogued device type to its endpoint.
var devicePaths = map[device.Type]string{
	device.TypeSystem:      pathSystems,
	device.TypePartition:   pathPartitions,
	device.TypeSensor:      pathSensors,
	device.TypeLock:        pathLocks,
	device.TypeLight:       pathLights,
	device.TypeGarageDoor:  pathGarageDoors,
	device.TypeThermostat:  pathThermostats,
	device.TypeWaterSensor: pathWaterSensors,
	device.TypeCamera:      pathCameras,
}

// pollOrder is the sequence a full poll walks the catalogue endpoints in.
// Partitions come first so partition-scoped devices resolve their parent.
var pollOrder = []device.Type{
	device.TypeSystem,
	device.TypePartition,
	device.TypeSensor,
	device.TypeLock,
	device.TypeLight,
	device.TypeGarageDoor,
	device.TypeThermostat,
	device.TypeWaterSensor,
	device.TypeCamera,
}

// Identities fetches the account identity document. The vendor returns
// the current profile with included provider details.
func (c *Client) Identities(ctx context.Context) (*jsonapi.Document, error) {
	return c.getDocument(ctx, pathIdentities, nil)
}

// System fetches one system by id.
func (c *Client) System(ctx context.Context, id string) (*jsonapi.Document, error) {
	return c.getDocument(ctx, pathSystems+"/"+id, nil)
}

// DevicesOfType fetches one page of the catalogue for a device type.
// Page zero omits the page parameter.
func (c *Client) DevicesOfType(ctx context.Context, t device.Type, page int) (*jsonapi.Document, error) {
	path, ok := devicePaths[t]
	if !ok {
		return nil, fmt.Errorf("sentra: no endpoint for device type %q", t)
	}
	var query url.Values
	if page > 0 {
		query = url.Values{"page[number]": []string{fmt.Sprint(page)}}
	}
	return c.getDocument(ctx, path, query)
}

// Device fetches a single device resource by type and id.
func (c *Client) Device(ctx context.Context, t device.Type, id string) (*jsonapi.Document, error) {
	path, ok := devicePaths[t]
	if !ok {
		return nil, fmt.Errorf("sentra: no endpoint for device type %q", t)
	}
	return c.getDocument(ctx, path+"/"+id, nil)
}

// WebSocketToken fetches a single-use push feed token. The endpoint
// answers plain JSON, not a JSON:API document.
func (c *Client) WebSocketToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(pathWSToken, nil), nil)
	if err != nil {
		return "", fmt.Errorf("sentra: build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.sessionToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sentra: fetch websocket token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &VendorError{StatusCode: resp.StatusCode}
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("sentra: decode websocket token: %w", err)
	}
	if payload.Value == "" {
		return "", fmt.Errorf("sentra: websocket token response carried no value: %w", jsonapi.ErrMalformedResponse)
	}
	return payload.Value, nil
}

// StreamURL fetches a fresh websocket token and builds the push feed dial
// address. It satisfies the stream package's TokenSource.
func (c *Client) StreamURL(ctx context.Context) (string, error) {
	token, err := c.WebSocketToken(ctx)
	if err != nil {
		return "", err
	}
	sep := "?"
	if u, err := url.Parse(c.streamEndpoint); err == nil && u.RawQuery != "" {
		sep = "&"
	}
	return c.streamEndpoint + sep + "auth=" + url.QueryEscape(token), nil
}
