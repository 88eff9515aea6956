package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"facility-finder/models"
	"facility-finder/query"
	"facility-finder/utils"
)

// ReportService turns a search result into a printable summary.
type ReportService struct {
	logger *utils.Logger
}

func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

func (s *ReportService) Generate(results []models.EnrichedFacility) *models.SearchReport {
	report := &models.SearchReport{
		ByOwnership: make(map[string]int),
	}

	if len(results) == 0 {
		return report
	}

	report.Total = len(results)

	var starsTotal, googleTotal float64
	var starsCount, googleCount int
	var googleRated []models.EnrichedFacility

	for i, f := range results {
		if f.DisplayName != nil {
			report.WithPlace++
		}
		if f.AISummary.Summary != "" {
			report.WithSummary++
		}
		if stars := query.OverallRating(&f.Facility); stars > 0 {
			starsTotal += stars
			starsCount++
		}
		if f.Rating != nil {
			googleTotal += *f.Rating
			googleCount++
			googleRated = append(googleRated, f)
		}
		if f.OwnershipType != "" {
			report.ByOwnership[f.OwnershipType]++
		}
		if f.DistanceM != nil && (report.Nearest == nil || *f.DistanceM < *report.Nearest.DistanceM) {
			report.Nearest = &results[i]
		}
	}

	if starsCount > 0 {
		report.AverageStars = round2(starsTotal / float64(starsCount))
	}
	if googleCount > 0 {
		report.AverageGoogle = round2(googleTotal / float64(googleCount))
	}

	// Top 5 by Google rating
	sort.SliceStable(googleRated, func(i, j int) bool {
		return *googleRated[i].Rating > *googleRated[j].Rating
	})
	if len(googleRated) > 5 {
		report.TopRated = googleRated[:5]
	} else {
		report.TopRated = googleRated
	}

	return report
}

func (s *ReportService) Print(w io.Writer, r *models.SearchReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  FACILITY SEARCH REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Facilities found       : \033[1m%d\033[0m\n", r.Total)
	fmt.Fprintf(w, "  Matched to a place     : \033[1m%d\033[0m\n", r.WithPlace)
	fmt.Fprintf(w, "  With review summary    : \033[1m%d\033[0m\n", r.WithSummary)
	fmt.Fprintln(w)

	// Ratings
	fmt.Fprintf(w, "\033[1;33m  Ratings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AverageStars > 0 {
		fmt.Fprintf(w, "  Average CMS overall rating : \033[1;32m%.2f\033[0m\n", r.AverageStars)
	} else {
		fmt.Fprintf(w, "  No CMS rating data available\n")
	}
	if r.AverageGoogle > 0 {
		fmt.Fprintf(w, "  Average Google rating      : \033[1;32m%.2f\033[0m\n", r.AverageGoogle)
	}
	fmt.Fprintln(w)

	if r.Nearest != nil {
		fmt.Fprintf(w, "\033[1;33m  Nearest Facility\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Nearest.ProviderName, 50))
		fmt.Fprintf(w, "  Address  : %s, %s %s\n", r.Nearest.ProviderAddress, r.Nearest.City, r.Nearest.State)
		fmt.Fprintf(w, "  Distance : \033[1;36m%.2f km\033[0m\n", *r.Nearest.DistanceKm)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top 5 by Google Rating\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Fprintf(w, "  No rated facilities found\n")
	} else {
		for i, f := range r.TopRated {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%.1f ★\033[0m\n",
				i+1, truncate(f.ProviderName, 38), *f.Rating)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Facilities by Ownership\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByOwnership) == 0 {
		fmt.Fprintf(w, "  No ownership data\n")
	} else {
		type ownCount struct {
			own   string
			count int
		}
		var owns []ownCount
		for own, cnt := range r.ByOwnership {
			owns = append(owns, ownCount{own, cnt})
		}
		sort.Slice(owns, func(i, j int) bool {
			if owns[i].count != owns[j].count {
				return owns[i].count > owns[j].count
			}
			return owns[i].own < owns[j].own
		})
		for _, oc := range owns {
			bar := strings.Repeat("█", oc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(oc.own, 28), bar, oc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
