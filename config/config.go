package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds every tunable of the pipeline. All values are static
// configuration: defaults target the Cundinamarca / Bogotá study region and
// can be overridden from relief.yaml or the environment.
type Config struct {
	Boundary  BoundaryConfig
	Rivers    RiversConfig
	Elevation ElevationConfig
	Scene     SceneConfig
	CRS       CRSConfig
	WorkDir   string
	LogLevel  string
}

type BoundaryConfig struct {
	Country     string
	Level       int
	Regions     []string
	NameField   string
	URLTemplate string
	CachePath   string
}

type RiversConfig struct {
	ShapefilePath  string
	ArchiveURL     string
	FlowOrderField string
}

type ElevationConfig struct {
	TileURLTemplate string
	TileCacheDir    string
	Zoom            int
	MaxDownloads    int
}

type SceneConfig struct {
	RampLow       string
	RampHigh      string
	RampSteps     int
	RiverColor    string
	CameraPhi     float64
	CameraTheta   float64
	ShadowDepth   float64
	Solid         bool
	Background    string
	WindowWidth   int
	WindowHeight  int
	Zoom          float64
	ExaggerationK float64
}

// CRSConfig parameterizes the working transverse Mercator projection by an
// origin near the study region.
type CRSConfig struct {
	OriginLat float64
	OriginLon float64
}

func Load() (*Config, error) {
	viper.SetConfigName("relief")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("RELIEF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// A missing config file is fine: defaults describe a complete run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		Boundary: BoundaryConfig{
			Country:     viper.GetString("boundary.country"),
			Level:       viper.GetInt("boundary.level"),
			Regions:     viper.GetStringSlice("boundary.regions"),
			NameField:   viper.GetString("boundary.name_field"),
			URLTemplate: viper.GetString("boundary.url_template"),
			CachePath:   viper.GetString("boundary.cache_path"),
		},
		Rivers: RiversConfig{
			ShapefilePath:  viper.GetString("rivers.shapefile_path"),
			ArchiveURL:     viper.GetString("rivers.archive_url"),
			FlowOrderField: viper.GetString("rivers.flow_order_field"),
		},
		Elevation: ElevationConfig{
			TileURLTemplate: viper.GetString("elevation.tile_url_template"),
			TileCacheDir:    viper.GetString("elevation.tile_cache_dir"),
			Zoom:            viper.GetInt("elevation.zoom"),
			MaxDownloads:    viper.GetInt("elevation.max_downloads"),
		},
		Scene: SceneConfig{
			RampLow:       viper.GetString("scene.ramp_low"),
			RampHigh:      viper.GetString("scene.ramp_high"),
			RampSteps:     viper.GetInt("scene.ramp_steps"),
			RiverColor:    viper.GetString("scene.river_color"),
			CameraPhi:     viper.GetFloat64("scene.camera_phi"),
			CameraTheta:   viper.GetFloat64("scene.camera_theta"),
			ShadowDepth:   viper.GetFloat64("scene.shadow_depth"),
			Solid:         viper.GetBool("scene.solid"),
			Background:    viper.GetString("scene.background"),
			WindowWidth:   viper.GetInt("scene.window_width"),
			WindowHeight:  viper.GetInt("scene.window_height"),
			Zoom:          viper.GetFloat64("scene.zoom"),
			ExaggerationK: viper.GetFloat64("scene.exaggeration"),
		},
		CRS: CRSConfig{
			OriginLat: viper.GetFloat64("crs.origin_lat"),
			OriginLon: viper.GetFloat64("crs.origin_lon"),
		},
		WorkDir:  viper.GetString("work_dir"),
		LogLevel: viper.GetString("log_level"),
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("boundary.country", "COL")
	viper.SetDefault("boundary.level", 1)
	viper.SetDefault("boundary.regions", []string{"Cundinamarca", "Bogotá D.C."})
	viper.SetDefault("boundary.name_field", "NAME_1")
	viper.SetDefault("boundary.url_template", "https://geodata.ucdavis.edu/gadm/gadm4.1/json/gadm41_%s_%d.json")
	viper.SetDefault("boundary.cache_path", "gadm41_COL_1.json")

	viper.SetDefault("rivers.shapefile_path", "HydroRIVERS_v10_sa_shp/HydroRIVERS_v10_sa.shp")
	viper.SetDefault("rivers.archive_url", "https://data.hydrosheds.org/file/HydroRIVERS/HydroRIVERS_v10_sa_shp.zip")
	viper.SetDefault("rivers.flow_order_field", "ORD_FLOW")

	viper.SetDefault("elevation.tile_url_template", "https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png")
	viper.SetDefault("elevation.tile_cache_dir", "cache")
	viper.SetDefault("elevation.zoom", 10)
	viper.SetDefault("elevation.max_downloads", 16)

	viper.SetDefault("scene.ramp_low", "#EAD9C9")
	viper.SetDefault("scene.ramp_high", "#8A6240")
	viper.SetDefault("scene.ramp_steps", 128)
	viper.SetDefault("scene.river_color", "#387B9C")
	viper.SetDefault("scene.camera_phi", 89)
	viper.SetDefault("scene.camera_theta", 0)
	viper.SetDefault("scene.shadow_depth", 1.0)
	viper.SetDefault("scene.solid", false)
	viper.SetDefault("scene.background", "#FFFFFF")
	viper.SetDefault("scene.window_width", 2400)
	viper.SetDefault("scene.window_height", 2400)
	viper.SetDefault("scene.zoom", 0.5)
	viper.SetDefault("scene.exaggeration", 1.0)

	viper.SetDefault("crs.origin_lat", 4.7)
	viper.SetDefault("crs.origin_lon", -74.1)

	viper.SetDefault("work_dir", "output")
	viper.SetDefault("log_level", "info")
}
