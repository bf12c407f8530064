package transport

// StageResponse is the response body for a configured pipeline stage.
type StageResponse struct {
	StageID    string `json:"stageId"`
	Label      string `json:"label"`
	Color      string `json:"color"`
	OrderIndex int    `json:"orderIndex"`
	IsDefault  bool   `json:"isDefault"`
}

// SettingsResponse is the response body for team settings.
type SettingsResponse struct {
	SetterCommissionPct        float64 `json:"setterCommissionPct"`
	CloserCommissionPct        float64 `json:"closerCommissionPct"`
	AutoReturnMinutes          int     `json:"autoReturnMinutes"`
	AllowSetterPipelineUpdates bool    `json:"allowSetterPipelineUpdates"`
}

// UpdateSettingsRequest is the request body for updating team settings.
type UpdateSettingsRequest struct {
	SetterCommissionPct        float64 `json:"setterCommissionPct" validate:"min=0,max=100"`
	CloserCommissionPct        float64 `json:"closerCommissionPct" validate:"min=0,max=100"`
	AutoReturnMinutes          int     `json:"autoReturnMinutes" validate:"min=1,max=1440"`
	AllowSetterPipelineUpdates bool    `json:"allowSetterPipelineUpdates"`
}
