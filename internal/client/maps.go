package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"ecoretail/internal/misc"
)

var ErrMaps = errors.New("Maps error")
var ErrMapsRouteNotFound = errors.New("no route found between the locations")

type Route struct {
	DistanceText   string
	DistanceMeters int
	DurationText   string
	Polyline       string
}

type mapsDistanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Text  string `json:"text"`
				Value int    `json:"value"`
			} `json:"distance"`
			Duration struct {
				Text string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

type mapsDirectionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
	} `json:"routes"`
}

// MapsRoute resolves driving distance and duration between two free-text
// addresses via the Distance Matrix API, then fetches the overview polyline
// from the Directions API. The polyline is display-only, so a failure there
// degrades to an empty polyline instead of failing the route.
func (c Client) MapsRoute(ctx context.Context, origin string, destination string) (Route, error) {
	var rt Route

	matrixURL := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/distancematrix/json?origins=%s&destinations=%s&key=%s",
		url.QueryEscape(origin), url.QueryEscape(destination), c.MapsAPIKey)
	matrixResp := mapsDistanceMatrixResponse{}
	if err := c.mapsGet(ctx, matrixURL, &matrixResp); err != nil {
		return rt, err
	}
	if matrixResp.Status != "OK" {
		return rt, errors.Wrapf(ErrMaps, "DistanceMatrixAPI status: %s", matrixResp.Status)
	}
	if len(matrixResp.Rows) == 0 || len(matrixResp.Rows[0].Elements) == 0 ||
		matrixResp.Rows[0].Elements[0].Status != "OK" {
		return rt, errors.WithMessagef(ErrMapsRouteNotFound, "origin: %s, destination: %s", origin, destination)
	}
	element := matrixResp.Rows[0].Elements[0]
	rt.DistanceText = element.Distance.Text
	rt.DistanceMeters = element.Distance.Value
	rt.DurationText = element.Duration.Text

	directionsURL := fmt.Sprintf(
		"https://maps.googleapis.com/maps/api/directions/json?origin=%s&destination=%s&key=%s",
		url.QueryEscape(origin), url.QueryEscape(destination), c.MapsAPIKey)
	directionsResp := mapsDirectionsResponse{}
	if err := c.mapsGet(ctx, directionsURL, &directionsResp); err != nil {
		c.Logger.Errorf("MapsRoute: Error getting Directions for polyline, err: %v", err)
		return rt, nil
	}
	if directionsResp.Status == "OK" && len(directionsResp.Routes) > 0 {
		rt.Polyline = directionsResp.Routes[0].OverviewPolyline.Points
	}
	return rt, nil
}

func (c Client) mapsGet(ctx context.Context, apiURL string, out any) error {
	req, err := newRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return errors.Wrap(err, "mapsGet: error creating HTTP request")
	}
	req = req.WithContext(ctx)

	resp, err := c.Do(req)
	if err != nil {
		return errors.Wrapf(ErrMaps, "error doing request, err: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300*1024))
	if err != nil {
		return errors.Wrapf(ErrMaps, "error reading response body, status: %s, err: %v", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrMaps, "status: %s, body:\n%s", resp.Status, misc.BytesLimit(body, 2000))
	}
	if err = json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(ErrMaps, "error unmarshalling response body:\n%s,\nerr: %v", misc.BytesLimit(body, 2000), err)
	}
	return nil
}
