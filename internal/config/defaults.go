package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/barstamp/data/barcodes.db"
	}
	if cfg.Storage.LookupIndexPath == "" {
		cfg.Storage.LookupIndexPath = "/usr/local/var/barstamp/data/lookup"
	}
	if cfg.Import.IDColumn == "" {
		cfg.Import.IDColumn = "A"
	}
	if cfg.Import.BarcodeColumn == "" {
		// The accounting export carries the barcode in the fourth column.
		cfg.Import.BarcodeColumn = "D"
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".xlsx"}
	}
	if cfg.Annotate.Workers == 0 {
		cfg.Annotate.Workers = 4
	}
	if cfg.Annotate.Stamp.Position == "" {
		cfg.Annotate.Stamp.Position = "tr"
	}
	if cfg.Annotate.Stamp.WidthFactor == 0 {
		cfg.Annotate.Stamp.WidthFactor = 5
	}
	if cfg.Annotate.Stamp.HeightFactor == 0 {
		cfg.Annotate.Stamp.HeightFactor = 20
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = append([]string(nil), cfg.Import.Extensions...)
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
