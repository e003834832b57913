package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonathan/spanisami/internal/jobscanner"
	"github.com/jonathan/spanisami/internal/types"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List demo job listings around a city or point",
	RunE:  runJobs,
}

var (
	jobsCity   string
	jobsRadius float64
	jobsLat    float64
	jobsLng    float64
	jobsAll    bool
)

func init() {
	jobsCmd.Flags().StringVar(&jobsCity, "city", "", "City code ("+cityCodes()+")")
	jobsCmd.Flags().Float64VarP(&jobsRadius, "radius", "r", 0, "Search radius in km (default from catalog)")
	jobsCmd.Flags().Float64Var(&jobsLat, "lat", 0, "Centre latitude (with --lng)")
	jobsCmd.Flags().Float64Var(&jobsLng, "lng", 0, "Centre longitude (with --lat)")
	jobsCmd.Flags().BoolVarP(&jobsAll, "all", "a", false, "Include jobs outside the radius")
	jobsCmd.MarkFlagsRequiredTogether("lat", "lng")
	jobsCmd.MarkFlagsMutuallyExclusive("city", "lat")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	catalog, err := jobscanner.DefaultCatalog()
	if err != nil {
		return err
	}

	center := catalog.DefaultCenter()
	label := ""
	switch {
	case cmd.Flags().Changed("lat"):
		center = types.LatLng{Lat: jobsLat, Lng: jobsLng}
		label = fmt.Sprintf("%.4f, %.4f", jobsLat, jobsLng)
	case jobsCity != "":
		city, ok := catalog.City(jobsCity)
		if !ok {
			return fmt.Errorf("unknown city %q", jobsCity)
		}
		center = city.Position()
		label = city.Name
	default:
		city, _ := catalog.City(catalog.DefaultCity)
		label = city.Name
	}

	radius := catalog.DefaultRadiusKm
	if cmd.Flags().Changed("radius") {
		if jobsRadius <= 0 {
			return jobscanner.ErrInvalidRadius
		}
		radius = jobsRadius
	}

	rows, inRange := jobsTable(catalog, center, radius, jobsAll)
	pterm.DefaultSection.Printf("Jobs within %s km of %s\n", jobscanner.FormatKm(radius), label)
	if len(rows) == 1 {
		pterm.Info.Println("No jobs match. Try a bigger radius or --all.")
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}
	pterm.Info.Printf("%d of %d jobs in range\n", inRange, len(catalog.Jobs))
	return nil
}

// jobsTable returns the listing rows, header first, nearest first, and the
// number of jobs in range.
func jobsTable(catalog *jobscanner.Catalog, center types.LatLng, radiusKm float64, all bool) ([][]string, int) {
	markers := jobscanner.Classify(catalog.Jobs, center, radiusKm*1000)
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Distance < markers[j].Distance })

	rows := [][]string{{"ID", "Title", "Company", "Distance", "In range"}}
	inRange := 0
	for _, m := range markers {
		if m.InRange {
			inRange++
		} else if !all {
			continue
		}
		job, _ := catalog.Job(m.JobID)
		mark := ""
		if m.InRange {
			mark = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(job.ID),
			job.Title,
			job.Company,
			jobscanner.FormatKm(m.Distance/1000) + " km",
			mark,
		})
	}
	return rows, inRange
}

// cityCodes lists the catalog's city codes for flag help.
func cityCodes() string {
	catalog, err := jobscanner.DefaultCatalog()
	if err != nil {
		return "see catalog"
	}
	codes := make([]string, len(catalog.Cities))
	for i, c := range catalog.Cities {
		codes[i] = c.Code
	}
	return strings.Join(codes, ", ")
}
