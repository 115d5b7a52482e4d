package main

import "github.com/vetlab-site/labmedia/config"

type Command struct {
	Version struct{} `cmd:"" help:"Print version information."`
	Ingest  struct {
		File        string              `help:"file to store" short:"f" required:""`
		Module      string              `help:"module namespace, e.g. news or partners" short:"m" required:""`
		ContentType string              `help:"declared media type, guessed from the file name when empty"`
		Config      string              `help:"config file supplying defaults for the flags below" short:"c"`
		Storage     string              `help:"storage root directory" short:"s"`
		Database    string              `help:"site database path" short:"d"`
		BaseURL     string              `help:"public base URL used to qualify the returned URLs"`
		Quality     int                 `help:"webp quality for derived renditions"`
		MaxSize     config.SizeArgument `help:"maximum accepted upload size, e.g. 20MB"`
	} `cmd:"" help:"Store one file through the image ingestion pipeline."`
	Sweep struct {
		Storage    string `help:"storage root directory" short:"s" required:""`
		Database   string `help:"site database path" short:"d" required:""`
		DryRun     bool   `help:"don't delete any files, just print the report"`
		Mark       string `help:"where referenced URLs come from" enum:"scan,ledger,both" default:"scan"`
		ArchiveDir string `help:"quarantine orphans into a zip under this directory before deleting"`
		Sample     int    `help:"number of orphan URLs to include in the report"`
	} `cmd:"" help:"Delete stored files no site record references anymore."`
	Daemon struct {
		Config   string `help:"config file path" short:"c" required:""`
		Database string `help:"site database path, overrides the config file" short:"d"`
		DryRun   bool   `help:"don't delete any files, just print the reports"`
	} `cmd:"" help:"Run scheduled sweeps."`
	Resolve struct {
		BaseURL string `help:"public base URL, defaults to the BASE_URL environment variable"`
	} `cmd:"" help:"Read a JSON payload on stdin and qualify its asset URLs."`
}
