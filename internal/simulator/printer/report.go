package printer

// CommandPushStatus is the command name of a full status push.
const CommandPushStatus = "push_status"

// StatusReport is the body of a push_status message.
type StatusReport struct {
	Command         string   `json:"command"`
	Msg             int      `json:"msg"`
	SequenceID      string   `json:"sequence_id"`
	GcodeState      Status   `json:"gcode_state"`
	McPrintStage    Status   `json:"mc_print_stage"`
	McPercent       int      `json:"mc_percent"`
	McRemainingTime int      `json:"mc_remaining_time"`
	BedTemper       float64  `json:"bed_temper"`
	BedTargetTemper float64  `json:"bed_target_temper"`
	NozzleTemper    float64  `json:"nozzle_temper"`
	NozzleTarget    float64  `json:"nozzle_target_temper"`
	ChamberTemper   float64  `json:"chamber_temper"`
	SpeedLevel      int      `json:"speed_level"`
	FanGear         int      `json:"fan_gear"`
	LayerNum        int      `json:"layer_num"`
	TotalLayerNum   int      `json:"total_layer_num"`
	PrintError      int      `json:"print_error"`
	WifiSignal      int      `json:"wifi_signal"`
	LightsReport    []Light  `json:"lights_report"`
	Online          Online   `json:"online"`
	IPCam           IPCam    `json:"ipcam"`
	GcodeFile       string   `json:"gcode_file"`
	SubtaskName     string   `json:"subtask_name"`
	Stg             []int    `json:"stg"`
	StgCur          int      `json:"stg_cur"`
	AMS             AMSBlock `json:"ams"`
}

type Light struct {
	Node string `json:"node"`
	Mode string `json:"mode"`
}

type Online struct {
	Version int  `json:"version"`
	AHB     bool `json:"ahb"`
}

type IPCam struct {
	Dev    string `json:"ipcam_dev"`
	Record string `json:"ipcam_record"`
}

// AMSBlock is the "ams" object of a status push.
type AMSBlock struct {
	Units           []AMSUnit `json:"ams"`
	AMSExistBits    string    `json:"ams_exist_bits"`
	InsertFlag      bool      `json:"insert_flag"`
	PowerOnFlag     bool      `json:"power_on_flag"`
	TrayExistBits   string    `json:"tray_exist_bits"`
	TrayIsBBLBits   string    `json:"tray_is_bbl_bits"`
	TrayNow         int       `json:"tray_now"`
	TrayPre         int       `json:"tray_pre"`
	TrayReadDone    string    `json:"tray_read_done_bits"`
	TrayReadingBits string    `json:"tray_reading_bits"`
	TrayTar         int       `json:"tray_tar"`
	Version         int       `json:"version"`
}

type AMSUnit struct {
	ID       string  `json:"id"`
	Humidity int     `json:"humidity"`
	Temp     float64 `json:"temp"`
	Trays    []Tray  `json:"tray"`
}

// Module is one firmware component in a get_version reply.
type Module struct {
	Name  string `json:"name"`
	SwVer string `json:"sw_ver"`
	HwVer string `json:"hw_ver"`
	SN    string `json:"sn,omitempty"`
}

// FirmwareVersion is reported by every module.
const FirmwareVersion = "1.02.00.00"

// Modules returns the static firmware inventory of a printer with the given serial.
func Modules(serial string) []Module {
	return []Module{
		{Name: "ota", SwVer: FirmwareVersion},
		{Name: "mc", SwVer: FirmwareVersion, HwVer: "AP04", SN: serial},
		{Name: "esp32", SwVer: FirmwareVersion},
		{Name: "ams", SwVer: FirmwareVersion, HwVer: "AMS01"},
	}
}

// report builds the push body. Callers hold the printer lock.
func (p *Printer) report(seq string) StatusReport {
	s := &p.state
	status := p.machine.Status()

	trays := make([]Tray, len(p.trays))
	for i := range p.trays {
		trays[i] = p.trays[i].clone()
	}

	return StatusReport{
		Command:         CommandPushStatus,
		SequenceID:      seq,
		GcodeState:      status,
		McPrintStage:    status,
		McPercent:       s.Progress,
		McRemainingTime: s.RemainingTime,
		BedTemper:       round1(s.BedTemp),
		BedTargetTemper: s.BedTarget,
		NozzleTemper:    round1(s.NozzleTemp),
		NozzleTarget:    s.NozzleTarget,
		ChamberTemper:   s.ChamberTemp,
		SpeedLevel:      s.SpeedLevel,
		FanGear:         s.FanSpeed,
		LayerNum:        s.Layer,
		TotalLayerNum:   s.TotalLayers,
		PrintError:      s.PrintError,
		WifiSignal:      s.WifiSignal,
		LightsReport:    []Light{{Node: "chamber_light", Mode: s.LEDMode}},
		Online:          Online{Version: 1, AHB: s.Online},
		IPCam:           IPCam{Dev: "1", Record: "enable"},
		GcodeFile:       s.CurrentFile,
		SubtaskName:     s.CurrentFile,
		Stg:             []int{},
		AMS: AMSBlock{
			Units:           []AMSUnit{{ID: "0", Humidity: 3, Temp: AmbientTemp, Trays: trays}},
			AMSExistBits:    "1",
			InsertFlag:      true,
			TrayExistBits:   "e",
			TrayIsBBLBits:   "e",
			TrayNow:         s.TrayNow,
			TrayPre:         s.TrayPre,
			TrayReadDone:    "e",
			TrayReadingBits: "0",
			TrayTar:         s.TrayTar,
			Version:         4,
		},
	}
}
