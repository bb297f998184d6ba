package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// FleetUnit is the simulated state of one vehicle between fuel fills.
type FleetUnit struct {
	FleetNumber string
	AssetClass  string // "towing" or "reefer"
	HasProbe    bool
	Odometer    float64
	LastFillID  string // id of the most recent towing fill, for reefer linking
}

// fill is the ingestion payload posted to /api/diesel.
type fill struct {
	FleetNumber             string    `json:"fleet_number"`
	Date                    time.Time `json:"date"`
	DriverName              string    `json:"driver_name"`
	FuelStation             string    `json:"fuel_station"`
	VolumeFilled            float64   `json:"volume_filled"`
	OdometerReading         float64   `json:"odometer_reading"`
	PreviousOdometerReading *float64  `json:"previous_odometer_reading,omitempty"`
	HoursOperated           float64   `json:"hours_operated,omitempty"`
	TotalCost               float64   `json:"total_cost"`
	Currency                string    `json:"currency"`
	TowingRecordID          string    `json:"towing_record_id,omitempty"`
}

var drivers = []string{
	"T. Nkosi", "P. van der Merwe", "S. Dlamini", "J. Botha",
	"M. Khumalo", "A. Pillay", "L. Mokoena", "R. Jacobs",
}

var stations = []string{
	"Engen Harrismith", "Shell Ultra City N3", "Total Mooi River",
	"Sasol Ladysmith", "BP Colesberg", "Engen Beaufort West",
}

var authToken string

func authorizedPost(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func authorizedPut(url string, body *bytes.Buffer) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPut, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func registerAsset(apiURL string, unit *FleetUnit) error {
	asset := map[string]interface{}{
		"asset_class": unit.AssetClass,
		"make":        []string{"Scania", "Volvo", "MAN", "Mercedes-Benz"}[rand.Intn(4)],
		"year":        2018 + rand.Intn(7),
		"has_probe":   unit.HasProbe,
		"status":      "active",
	}
	data, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("failed to marshal asset: %w", err)
	}

	resp, err := authorizedPut(apiURL+"/assets/"+unit.FleetNumber, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to register asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("asset registration failed with status: %d", resp.StatusCode)
	}

	log.WithFields(log.Fields{
		"fleet_number": unit.FleetNumber,
		"asset_class":  unit.AssetClass,
		"has_probe":    unit.HasProbe,
	}).Info("Registered fleet asset")
	return nil
}

// sendFill posts one fuel fill. Towing fills advance the odometer; reefer
// fills carry operated hours and link back to the tractor's latest fill.
func sendFill(apiURL string, unit *FleetUnit, tractor *FleetUnit) (string, error) {
	f := fill{
		FleetNumber: unit.FleetNumber,
		Date:        time.Now().UTC(),
		DriverName:  drivers[rand.Intn(len(drivers))],
		FuelStation: stations[rand.Intn(len(stations))],
		Currency:    "ZAR",
	}

	if unit.AssetClass == "towing" {
		prev := unit.Odometer
		distance := 800 + rand.Float64()*900
		unit.Odometer += distance
		volume := distance / (2.5 + rand.Float64()*1.5) // 2.5-4.0 km/l
		f.VolumeFilled = float64(int(volume))
		f.OdometerReading = unit.Odometer
		f.PreviousOdometerReading = &prev
		f.TotalCost = f.VolumeFilled * (18.0 + rand.Float64()*3.0)
	} else {
		hours := 20 + rand.Float64()*50
		f.HoursOperated = float64(int(hours))
		f.VolumeFilled = f.HoursOperated * (2.0 + rand.Float64()*1.5) // 2.0-3.5 l/h
		f.TotalCost = f.VolumeFilled * (18.0 + rand.Float64()*3.0)
		if tractor != nil && tractor.LastFillID != "" {
			f.TowingRecordID = tractor.LastFillID
		}
	}

	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to marshal fill: %w", err)
	}

	resp, err := authorizedPost(apiURL+"/diesel", bytes.NewBuffer(data))
	if err != nil {
		return "", fmt.Errorf("failed to send fill: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("fill ingestion failed with status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	id, ok := result["id"].(string)
	if !ok {
		return "", fmt.Errorf("invalid record ID in response")
	}

	log.WithFields(log.Fields{
		"record_id":    id,
		"fleet_number": unit.FleetNumber,
		"litres":       f.VolumeFilled,
		"cost":         fmt.Sprintf("%.2f", f.TotalCost),
	}).Info("Sent fuel fill")
	return id, nil
}

func simulateUnit(apiURL string, unit *FleetUnit, tractor *FleetUnit, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for range tick.C {
		id, err := sendFill(apiURL, unit, tractor)
		if err != nil {
			log.WithError(err).WithField("fleet_number", unit.FleetNumber).Error("Fill failed")
			continue
		}
		if unit.AssetClass == "towing" {
			unit.LastFillID = id
		}
	}
}

func main() {
	// Optional JWT for protected API
	authToken = os.Getenv("SIM_AUTH_TOKEN")

	fleetSize := 10
	if val := os.Getenv("FLEET_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			fleetSize = n
		}
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}

	interval := 5 * time.Second
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			interval = time.Duration(n) * time.Second
		}
	}

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting fuel fill simulation")

	// Half towing units, half reefers paired to a tractor.
	units := make([]*FleetUnit, 0, fleetSize)
	var tractors []*FleetUnit
	for i := 0; i < fleetSize; i++ {
		unit := &FleetUnit{
			FleetNumber: fmt.Sprintf("SIM-%03d", i+1),
			AssetClass:  "towing",
			Odometer:    100000 + rand.Float64()*200000,
		}
		if i%2 == 1 && len(tractors) > 0 {
			unit.AssetClass = "reefer"
			unit.HasProbe = rand.Intn(3) == 0
		}
		if err := registerAsset(apiURL, unit); err != nil {
			log.WithError(err).Error("Failed to register asset")
			continue
		}
		if unit.AssetClass == "towing" {
			tractors = append(tractors, unit)
		}
		units = append(units, unit)
	}

	log.WithField("registered_units", len(units)).Info("Asset registration completed")
	if len(units) == 0 {
		log.Error("No assets registered. Ensure SIM_AUTH_TOKEN is valid and API is reachable. Exiting.")
		time.Sleep(2 * time.Second)
		return
	}

	for _, u := range units {
		var tractor *FleetUnit
		if u.AssetClass == "reefer" {
			tractor = tractors[rand.Intn(len(tractors))]
		}
		go simulateUnit(apiURL, u, tractor, interval)
	}

	log.Info("Fuel fill simulation started")
	select {} // Block forever
}
