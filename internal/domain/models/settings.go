package models

// ChartSettings are the overlay toggles shared by every chart and settings control.
type ChartSettings struct {
	Emas     bool `json:"emas"`
	Bos      bool `json:"bos"`
	Ignition bool `json:"ignition"`
	Climax   bool `json:"climax"`
	Signals  bool `json:"signals"`
}

// DefaultChartSettings has every overlay enabled.
func DefaultChartSettings() ChartSettings {
	return ChartSettings{
		Emas:     true,
		Bos:      true,
		Ignition: true,
		Climax:   true,
		Signals:  true,
	}
}

// ChartSettingsPatch is a partial update; nil fields are left untouched.
// It is also the decode target for persisted blobs, so absent keys fall back.
type ChartSettingsPatch struct {
	Emas     *bool `json:"emas,omitempty"`
	Bos      *bool `json:"bos,omitempty"`
	Ignition *bool `json:"ignition,omitempty"`
	Climax   *bool `json:"climax,omitempty"`
	Signals  *bool `json:"signals,omitempty"`
}

// Merge returns s with every non-nil field of p applied.
func (s ChartSettings) Merge(p ChartSettingsPatch) ChartSettings {
	if p.Emas != nil {
		s.Emas = *p.Emas
	}
	if p.Bos != nil {
		s.Bos = *p.Bos
	}
	if p.Ignition != nil {
		s.Ignition = *p.Ignition
	}
	if p.Climax != nil {
		s.Climax = *p.Climax
	}
	if p.Signals != nil {
		s.Signals = *p.Signals
	}
	return s
}

// IsEmpty reports whether the patch changes nothing.
func (p ChartSettingsPatch) IsEmpty() bool {
	return p.Emas == nil && p.Bos == nil && p.Ignition == nil && p.Climax == nil && p.Signals == nil
}
