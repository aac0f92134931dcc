package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"

	"golang.org/x/term"

	"github.com/karstmap/annotate/annotate"
)

const AnnotateCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Annotation gateway control.

Usage:
    annotatectl login --api_url=<api_url>
        --user_auth=<user_auth>
        [--password=<password>]
    annotatectl whoami --jwt=<jwt>
    annotatectl list-projects --api_url=<api_url> --jwt=<jwt>
    annotatectl list-networks --api_url=<api_url> --jwt=<jwt>
    annotatectl list-stations --api_url=<api_url> --jwt=<jwt>
        [--project=<project_id>]
    annotatectl list-landmarks --api_url=<api_url> --jwt=<jwt>
    annotatectl list-tracks --api_url=<api_url> --jwt=<jwt>
    annotatectl move-station --api_url=<api_url> --jwt=<jwt>
        --station=<station_id>
        --lat=<lat> --lng=<lng>
    annotatectl access --api_url=<api_url> --jwt=<jwt>
        --project=<project_id>

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --api_url=<api_url>
    --user_auth=<user_auth>
    --password=<password>      Prompted when omitted.
    --jwt=<jwt>                Your gateway session JWT.
    --project=<project_id>
    --station=<station_id>
    --lat=<lat>                New latitude (decimal degrees).
    --lng=<lng>                New longitude (decimal degrees).`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], AnnotateCtlVersion)
	if err != nil {
		panic(err)
	}

	if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if whoami_, _ := opts.Bool("whoami"); whoami_ {
		whoami(opts)
	} else if listProjects_, _ := opts.Bool("list-projects"); listProjects_ {
		listProjects(opts)
	} else if listNetworks_, _ := opts.Bool("list-networks"); listNetworks_ {
		listNetworks(opts)
	} else if listStations_, _ := opts.Bool("list-stations"); listStations_ {
		listStations(opts)
	} else if listLandmarks_, _ := opts.Bool("list-landmarks"); listLandmarks_ {
		listLandmarks(opts)
	} else if listTracks_, _ := opts.Bool("list-tracks"); listTracks_ {
		listTracks(opts)
	} else if moveStation_, _ := opts.Bool("move-station"); moveStation_ {
		moveStation(opts)
	} else if access_, _ := opts.Bool("access"); access_ {
		access(opts)
	}
}

func newRegistry(opts docopt.Opts) (*annotate.Registry, context.CancelFunc) {
	apiUrl, _ := opts.String("--api_url")
	jwt, _ := opts.String("--jwt")

	cancelCtx, cancel := context.WithCancel(context.Background())
	api := annotate.NewGatewayApiWithContext(cancelCtx, apiUrl)
	registry := annotate.NewRegistryWithContext(cancelCtx, api)
	if jwt != "" {
		registry.SetAuthJwt(jwt)
	}
	return registry, cancel
}

func login(opts docopt.Opts) {
	apiUrl, _ := opts.String("--api_url")
	userAuth, _ := opts.String("--user_auth")
	password, _ := opts.String("--password")

	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			Err.Printf("Could not read password (%s).", err)
			os.Exit(1)
		}
		password = string(passwordBytes)
	}

	api := annotate.NewGatewayApi(apiUrl)
	defer api.Close()

	result, err := api.AuthLoginSync(&annotate.AuthLoginArgs{
		UserAuth: userAuth,
		Password: password,
	})
	if err != nil {
		Err.Printf("Login failed (%s).", err)
		os.Exit(1)
	}
	if result.Error != nil {
		Err.Printf("Login failed (%s).", result.Error.Message)
		os.Exit(1)
	}
	Out.Printf("%s", result.Token)
}

func whoami(opts docopt.Opts) {
	jwt, _ := opts.String("--jwt")

	sessionAuth, err := annotate.ParseSessionAuthUnverified(jwt)
	if err != nil {
		Err.Printf("Invalid session JWT (%s).", err)
		os.Exit(1)
	}
	Out.Printf("%s (%s)", sessionAuth.UserName, sessionAuth.UserId)
}

func listProjects(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	ctx := context.Background()
	for _, project := range registry.Projects().LoadAll(ctx) {
		Out.Printf("%s  %s  %s", project.Id, project.Rank, project.Name)
	}
}

func listNetworks(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	ctx := context.Background()
	for _, network := range registry.Networks().LoadAll(ctx) {
		Out.Printf("%s  level=%d  %s", network.Id, network.Level, network.Name)
	}
}

func listStations(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	ctx := context.Background()
	// the authorizer reads the scope mirrors
	registry.Projects().LoadAll(ctx)
	registry.Networks().LoadAll(ctx)

	projectId, _ := opts.String("--project")
	var features = registry.Stations().LoadAll(ctx).Features
	if projectId != "" {
		features = registry.Stations().LoadAllForScope(ctx, projectId).Features
	}
	for _, feature := range features {
		point := feature.Point()
		Out.Printf("%v  %v  (%f, %f)", feature.Properties["id"], feature.Properties["name"], point.Lat(), point.Lon())
	}
}

func listLandmarks(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	ctx := context.Background()
	for _, feature := range registry.Landmarks().LoadAll(ctx).Features {
		point := feature.Point()
		Out.Printf("%v  %v  (%f, %f)", feature.Properties["id"], feature.Properties["name"], point.Lat(), point.Lon())
	}
}

func listTracks(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	ctx := context.Background()
	for _, track := range registry.GpsTracks().LoadAll(ctx) {
		Out.Printf("%s  %s  %s", track.Id, track.ContentHash, track.Name)
	}
}

func moveStation(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	stationId, _ := opts.String("--station")
	latStr, _ := opts.String("--lat")
	lngStr, _ := opts.String("--lng")

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		Err.Printf("Invalid latitude (%s).", err)
		os.Exit(1)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		Err.Printf("Invalid longitude (%s).", err)
		os.Exit(1)
	}

	ctx := context.Background()
	registry.Projects().LoadAll(ctx)
	registry.Networks().LoadAll(ctx)
	registry.Stations().LoadAll(ctx)

	err = registry.Stations().Move(ctx, stationId, annotate.Position{
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		Err.Printf("Move failed (%s).", err)
		os.Exit(1)
	}
	Out.Printf("moved %s to (%f, %f)", stationId, lat, lng)
}

func access(opts docopt.Opts) {
	registry, cancel := newRegistry(opts)
	defer cancel()

	projectId, _ := opts.String("--project")

	ctx := context.Background()
	registry.Projects().LoadAll(ctx)

	accessSet := registry.Authorizer().GetAccess(annotate.ScopeProject, projectId)
	Out.Printf("read=%t write=%t delete=%t", accessSet.Read, accessSet.Write, accessSet.Delete)
}
