package models

// DashboardCounts are the headline numbers on the admin dashboard.
type DashboardCounts struct {
	TotalPermohonan   int `json:"total_permohonan"`
	PermohonanSelesai int `json:"permohonan_selesai"`
	PermohonanProses  int `json:"permohonan_proses"`
	PermohonanBaru    int `json:"permohonan_baru"`
	PermohonanDitolak int `json:"permohonan_ditolak"`
}

// PopularService counts requests per service.
type PopularService struct {
	Nama  string `json:"nama"`
	Count int    `json:"count"`
}

// ChartPoint is one day on the request trend line.
type ChartPoint struct {
	Date   string `json:"date"`
	Jumlah int    `json:"jumlah"`
}

// StatusSlice is one slice of the stage distribution.
type StatusSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// LayananTotal is one bar of the per-service chart.
type LayananTotal struct {
	Nama  string `json:"nama"`
	Total int    `json:"total"`
}

// DashboardStats is the payload of GET /dashboard/stats.
type DashboardStats struct {
	Stats                DashboardCounts  `json:"stats"`
	RecentApplications   []Permohonan     `json:"recent_applications"`
	PopularServices      []PopularService `json:"popular_services"`
	ChartData            []ChartPoint     `json:"chart_data"`
	StatusDistribution   []StatusSlice    `json:"status_distribution"`
	PermohonanPerLayanan []LayananTotal   `json:"permohonan_per_layanan"`
}
