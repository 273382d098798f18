package printer

// Status is the print job status reported as gcode_state.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusRunning Status = "RUNNING"
	StatusPaused  Status = "PAUSED"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusIdle, StatusRunning, StatusPaused}

const (
	// TrayCount is the number of trays in the single AMS unit.
	TrayCount = 4

	// NoTray is the tray_now sentinel meaning no tray is selected.
	NoTray = 255

	// AmbientTemp is the floor temperatures cool down to.
	AmbientTemp = 25.0
)

// State is the mutable machine state behind a status push.
type State struct {
	Progress      int
	RemainingTime int

	NozzleTemp   float64
	NozzleTarget float64
	BedTemp      float64
	BedTarget    float64
	ChamberTemp  float64

	SpeedLevel  int
	FanSpeed    int
	Layer       int
	TotalLayers int
	PrintError  int
	WifiSignal  int
	LEDMode     string
	Online      bool
	CurrentFile string

	TrayNow int
	TrayPre int
	TrayTar int
}

func initialState() State {
	return State{
		NozzleTemp:  AmbientTemp,
		BedTemp:     AmbientTemp,
		ChamberTemp: AmbientTemp,
		SpeedLevel:  2,
		WifiSignal:  -45,
		LEDMode:     "on",
		Online:      true,
		TrayNow:     NoTray,
		TrayPre:     NoTray,
		TrayTar:     NoTray,
	}
}

// Tray is one filament slot of the AMS, in its wire representation.
type Tray struct {
	ID            string   `json:"id"`
	BedTemp       int      `json:"bed_temp"`
	BedTempType   string   `json:"bed_temp_type"`
	Cols          []string `json:"cols"`
	DryingTemp    int      `json:"drying_temp"`
	DryingTime    int      `json:"drying_time"`
	NozzleTempMax int      `json:"nozzle_temp_max"`
	NozzleTempMin int      `json:"nozzle_temp_min"`
	Remain        float64  `json:"remain"`
	TagUID        string   `json:"tag_uid"`
	Color         string   `json:"tray_color"`
	Diameter      float64  `json:"tray_diameter"`
	IDName        string   `json:"tray_id_name"`
	InfoIdx       string   `json:"tray_info_idx"`
	SubBrands     string   `json:"tray_sub_brands"`
	Type          string   `json:"tray_type"`
	UUID          string   `json:"tray_uuid"`
	Weight        int      `json:"tray_weight"`
	XCamInfo      string   `json:"xcam_info"`
	K             float64  `json:"k"`
	N             float64  `json:"n"`
	TrayTemp      int      `json:"tray_temp"`
	TrayTime      int      `json:"tray_time"`
}

func newTray(id, color, infoIdx string) Tray {
	return Tray{
		ID:            id,
		BedTempType:   "0",
		Cols:          []string{color},
		NozzleTempMax: 240,
		NozzleTempMin: 190,
		Remain:        100,
		TagUID:        "0000000000000000",
		Color:         color,
		InfoIdx:       infoIdx,
		Type:          "PLA",
		UUID:          "00000000000000000000000000000000",
		XCamInfo:      "000000000000000000000000",
		K:             0.024,
		N:             0.1,
		TrayTemp:      240,
	}
}

func defaultTrays() [TrayCount]Tray {
	return [TrayCount]Tray{
		newTray("0", "FF0000FF", "GFA00"),
		newTray("1", "000000FF", "GFA00"),
		newTray("2", "DFE2E3FF", "GFA05"),
		newTray("3", "F95959FF", "GFL00"),
	}
}

func validTray(idx int) bool {
	return idx >= 0 && idx < TrayCount
}

// clone returns a copy that shares no slices with t.
func (t Tray) clone() Tray {
	t.Cols = append([]string(nil), t.Cols...)
	return t
}
