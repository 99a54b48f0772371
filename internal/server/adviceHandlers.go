package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ecoretail/internal/client"
)

func (s Server) emissionEstimate() http.HandlerFunc {
	type request struct {
		Product string `json:"product"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("emissionEstimate: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Product == "" {
			s.Logger.Debug("emissionEstimate: product not supplied")
			http.Error(w, "product is required", http.StatusBadRequest)
			return
		}

		prompt := fmt.Sprintf(
			`Estimate the CO2 emissions (in kg CO2 per kg of product) for the following product: %q. `+
				`Provide your answer as a JSON object with the following keys: manufacturing, packaging, shipping, total. `+
				`Each value should represent the emissions per kg of product. `+
				`Respond ONLY with the JSON object and no extra text or explanation.`,
			req.Product)

		text, err := s.Client.GeminiGenerateText(r.Context(), prompt, true)
		if err != nil {
			s.Logger.Errorf("emissionEstimate: Error generating estimate for product: %s, err: %v", req.Product, err)
			s.writeAdviceError(w, err)
			return
		}
		estimate, err := client.ExtractJSON(text)
		if err != nil || estimate[0] != '{' {
			s.Logger.Errorf("emissionEstimate: No JSON object in reply for product: %s, reply: %s", req.Product, text)
			s.writeAdviceError(w, client.ErrNoJSON)
			return
		}
		s.writeJsonResponse(w, estimate, http.StatusOK)
	}
}

func (s Server) packagingSuggest() http.HandlerFunc {
	type request struct {
		Product  string `json:"product"`
		Language string `json:"language"`
	}
	type response struct {
		Suggestions json.RawMessage `json:"suggestions"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("packagingSuggest: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Product == "" {
			s.Logger.Debug("packagingSuggest: product not supplied")
			http.Error(w, "product is required", http.StatusBadRequest)
			return
		}

		prompt := fmt.Sprintf(
			`Suggest 2-3 sustainable packaging materials for the following product: %q. `+
				`For each option, provide: Material name, Reason for recommendation, CO2 footprint (estimate), `+
				`Recyclability rating (1-5), Eco-labels/tags (e.g., "100%% recyclable"), and Green compliance tips. `+
				`Respond ONLY with a JSON array of objects with keys: material, reason, co2, recyclability, ecoLabels, tips, `+
				`and NO extra text or explanation.`,
			req.Product)
		if req.Language == "hi" {
			prompt += " Respond in Hindi, but still use the JSON array format as described, and NO extra text or explanation."
		}

		text, err := s.Client.GeminiGenerateText(r.Context(), prompt, true)
		if err != nil {
			s.Logger.Errorf("packagingSuggest: Error generating suggestions for product: %s, err: %v", req.Product, err)
			s.writeAdviceError(w, err)
			return
		}
		suggestions, err := client.ExtractJSON(text)
		if err != nil || suggestions[0] != '[' {
			s.Logger.Errorf("packagingSuggest: No JSON array in reply for product: %s, reply: %s", req.Product, text)
			s.writeAdviceError(w, client.ErrNoJSON)
			return
		}
		s.writeJsonResponse(w, response{Suggestions: suggestions}, http.StatusOK)
	}
}

// emissionFactors is kg CO2 per km for the delivery vehicles the chat
// assistant knows about.
var emissionFactors = map[string]float64{
	"bike":         0.01,
	"electric_van": 0.1,
	"petrol_van":   0.3,
	"diesel_truck": 0.8,
	"electric_car": 0.05,
	"petrol_car":   0.2,
}

var vehicleNames = map[string]string{
	"bike":         "bicycle",
	"electric_van": "electric van",
	"petrol_van":   "petrol van",
	"diesel_truck": "diesel truck",
	"electric_car": "electric car",
	"petrol_car":   "petrol car",
}

var emissionKeywords = []string{
	"km", "kilometer", "delivery", "emit", "co2", "carbon",
	"petrol", "diesel", "electric", "bike", "van", "truck",
}

var distancePattern = regexp.MustCompile(`(?i)(\d+)\s*(?:km|kilometer)`)

// detectEmissionRequest checks whether a chat message is asking for a
// delivery-emission estimate with a concrete distance. Those get answered
// locally from the factor table instead of going out to the provider.
func detectEmissionRequest(message string) (distanceKm int, vehicle string, ok bool) {
	lower := strings.ToLower(message)

	keywordFound := false
	for _, kw := range emissionKeywords {
		if strings.Contains(lower, kw) {
			keywordFound = true
			break
		}
	}
	if !keywordFound {
		return 0, "", false
	}

	m := distancePattern.FindStringSubmatch(lower)
	if m == nil {
		return 0, "", false
	}
	distanceKm, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", false
	}

	vehicle = "petrol_van"
	switch {
	case strings.Contains(lower, "bike") || strings.Contains(lower, "bicycle"):
		vehicle = "bike"
	case strings.Contains(lower, "car"):
		vehicle = "petrol_car"
		if strings.Contains(lower, "electric") {
			vehicle = "electric_car"
		}
	case strings.Contains(lower, "diesel"):
		vehicle = "diesel_truck"
	case strings.Contains(lower, "electric") || strings.Contains(lower, "ev"):
		vehicle = "electric_van"
	}
	return distanceKm, vehicle, true
}

func emissionReply(distanceKm int, vehicle string) string {
	total := float64(distanceKm) * emissionFactors[vehicle]
	var b strings.Builder
	fmt.Fprintf(&b, "For a %d km %s delivery: %.1f kg CO2.\n\nComparison:\n", distanceKm, vehicleNames[vehicle], total)
	for _, v := range []string{"bike", "electric_car", "electric_van", "petrol_car", "petrol_van", "diesel_truck"} {
		fmt.Fprintf(&b, "- %s: %.1f kg CO2\n", vehicleNames[v], float64(distanceKm)*emissionFactors[v])
	}
	b.WriteString("\nEco-friendly alternatives: choose electric vehicles when possible, consolidate deliveries, use local suppliers, and consider bike delivery for short distances.")
	return b.String()
}

func (s Server) chatMessage() http.HandlerFunc {
	type request struct {
		Message  string `json:"message"`
		Language string `json:"language"`
	}
	type response struct {
		Reply string `json:"reply"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("chatMessage: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.Message == "" {
			s.Logger.Debug("chatMessage: message not supplied")
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		if distanceKm, vehicle, ok := detectEmissionRequest(req.Message); ok {
			s.writeJsonResponse(w, response{Reply: emissionReply(distanceKm, vehicle)}, http.StatusOK)
			return
		}

		prompt := "You are EcoBot, a friendly and knowledgeable sustainability advisor. " +
			"You help users make eco-friendly choices and understand environmental impact: " +
			"product carbon footprints, delivery and transportation emissions, waste reduction, " +
			"sustainable living tips and packaging. " +
			"Be encouraging, provide practical and actionable advice, and keep responses concise but informative."
		if req.Language == "hi" {
			prompt += "\n\nRespond ONLY in Hindi."
		} else {
			prompt += "\n\nRespond ONLY in English."
		}
		prompt += "\n\nUser: " + req.Message + "\n\nPlease respond as EcoBot, providing helpful, eco-friendly advice."

		text, err := s.Client.GeminiGenerateText(r.Context(), prompt, false)
		if err != nil {
			s.Logger.Errorf("chatMessage: Error generating reply, err: %v", err)
			s.writeAdviceError(w, err)
			return
		}
		s.writeJsonResponse(w, response{Reply: text}, http.StatusOK)
	}
}

func (s Server) deliveryRoute() http.HandlerFunc {
	type request struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	type routeView struct {
		From     string `json:"from"`
		To       string `json:"to"`
		Distance string `json:"distance"`
		Duration string `json:"duration"`
		Polyline string `json:"polyline,omitempty"`
	}
	type response struct {
		Route routeView       `json:"route"`
		CO2   json.RawMessage `json:"co2"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		req := request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.Logger.Debugf("deliveryRoute: Error decoding JSON, err: %v", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if req.From == "" || req.To == "" {
			s.Logger.Debug("deliveryRoute: from or to not supplied")
			http.Error(w, "from and to are required", http.StatusBadRequest)
			return
		}

		rt, err := s.Client.MapsRoute(r.Context(), req.From, req.To)
		if err != nil {
			s.Logger.Errorf("deliveryRoute: Error resolving route from: %s, to: %s, err: %v", req.From, req.To, err)
			s.writeAdviceError(w, err)
			return
		}

		co2Prompt := fmt.Sprintf(
			`Calculate the CO2 emissions for a delivery route with the following details:
- Distance: %d meters (%.2f km)
- Duration: %s
- Vehicle type: Delivery van (petrol)

Provide a JSON response with the following structure:
{
  "co2_kg": number,
  "emission_breakdown": {
    "fuel_consumption_l_per_100km": number,
    "co2_per_liter": number,
    "total_fuel_used_l": number
  },
  "eco_alternatives": [
    {
      "vehicle": string,
      "co2_kg": number,
      "savings_percent": number
    }
  ],
  "sustainability_tips": [string]
}

Use realistic values: petrol vans typically consume 8-12L/100km and emit ~2.3kg CO2 per liter. Include electric van, bicycle, and electric car as alternatives. Respond ONLY with the JSON object.`,
			rt.DistanceMeters, float64(rt.DistanceMeters)/1000, rt.DurationText)

		text, err := s.Client.GeminiGenerateText(r.Context(), co2Prompt, true)
		if err != nil {
			s.Logger.Errorf("deliveryRoute: Error generating CO2 estimate, err: %v", err)
			s.writeAdviceError(w, err)
			return
		}
		co2, err := client.ExtractJSON(text)
		if err != nil || co2[0] != '{' {
			s.Logger.Errorf("deliveryRoute: No JSON object in CO2 reply: %s", text)
			s.writeAdviceError(w, client.ErrNoJSON)
			return
		}

		s.writeJsonResponse(w, response{
			Route: routeView{
				From:     req.From,
				To:       req.To,
				Distance: rt.DistanceText,
				Duration: rt.DurationText,
				Polyline: rt.Polyline,
			},
			CO2: co2,
		}, http.StatusOK)
	}
}

// writeAdviceError maps upstream-provider failures onto response codes. The
// providers are outside our control, so their failures surface as 503 rather
// than 500.
func (s Server) writeAdviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, client.ErrMapsRouteNotFound):
		http.Error(w, "No route found between the specified locations", http.StatusNotFound)
	case errors.Is(err, client.ErrGemini), errors.Is(err, client.ErrMaps), errors.Is(err, client.ErrNoJSON):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
