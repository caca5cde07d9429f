package hierarchy

import (
	"errors"
	"fmt"
	"sort"

	"ikh/dicom-tree/internal/models"
)

var ErrInconsistent = errors.New("inconsistent hierarchy")

// Conflict is a file whose series or instance was already placed under a
// different parent. The first placement is kept.
type Conflict struct {
	Filename string
	Level    string
	UID      string
	Kept     string
	Got      string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("%s: %s %s already belongs to %s, file says %s", c.Filename, c.Level, c.UID, c.Kept, c.Got)
}

func (c *Conflict) Unwrap() error { return ErrInconsistent }

// Aggregator groups file records into studies and series. Records must
// be added from a single goroutine, in file enumeration order; the first
// record to name a series or instance decides its parent.
type Aggregator struct {
	directory string

	seriesToStudy    map[string]string
	instanceToSeries map[string]string
	instanceToNode   map[string]*models.InstanceNode

	studyOrder     []string
	studies        map[string]*models.StudyNode
	seriesOrder    map[string][]string
	series         map[string]*models.SeriesNode
	instanceOrder  map[string][]string
	instancesAdded int
}

func New(directory string) *Aggregator {
	return &Aggregator{
		directory:        directory,
		seriesToStudy:    make(map[string]string),
		instanceToSeries: make(map[string]string),
		instanceToNode:   make(map[string]*models.InstanceNode),
		studies:          make(map[string]*models.StudyNode),
		seriesOrder:      make(map[string][]string),
		series:           make(map[string]*models.SeriesNode),
		instanceOrder:    make(map[string][]string),
	}
}

// Add places one record. The returned conflicts do not prevent
// placement.
func (a *Aggregator) Add(rec *models.FileRecord) []*Conflict {
	var conflicts []*Conflict
	ids := rec.IDs
	a.instancesAdded++

	if study, ok := a.seriesToStudy[ids.SeriesUID]; !ok {
		a.seriesToStudy[ids.SeriesUID] = ids.StudyUID
		if _, ok := a.studies[ids.StudyUID]; !ok {
			a.studyOrder = append(a.studyOrder, ids.StudyUID)
			a.studies[ids.StudyUID] = &models.StudyNode{UID: rec.StudyUID, Tags: rec.StudyTags}
		}
		a.seriesOrder[ids.StudyUID] = append(a.seriesOrder[ids.StudyUID], ids.SeriesUID)
		a.series[ids.SeriesUID] = &models.SeriesNode{UID: rec.SeriesUID, Tags: rec.SeriesTags}
	} else if study != ids.StudyUID {
		conflicts = append(conflicts, &Conflict{
			Filename: rec.Instance.Filename, Level: "series", UID: ids.SeriesUID, Kept: study, Got: ids.StudyUID,
		})
	}

	if series, ok := a.instanceToSeries[ids.InstanceUID]; !ok {
		a.instanceToSeries[ids.InstanceUID] = ids.SeriesUID
		a.instanceOrder[ids.SeriesUID] = append(a.instanceOrder[ids.SeriesUID], ids.InstanceUID)
	} else if series != ids.SeriesUID {
		conflicts = append(conflicts, &Conflict{
			Filename: rec.Instance.Filename, Level: "instance", UID: ids.InstanceUID, Kept: series, Got: ids.SeriesUID,
		})
	}

	a.instanceToNode[ids.InstanceUID] = rec.Instance
	return conflicts
}

func (a *Aggregator) StudyOf(seriesUID string) (string, bool) {
	s, ok := a.seriesToStudy[seriesUID]
	return s, ok
}

func (a *Aggregator) SeriesOf(instanceUID string) (string, bool) {
	s, ok := a.instanceToSeries[instanceUID]
	return s, ok
}

func (a *Aggregator) Instance(instanceUID string) (*models.InstanceNode, bool) {
	n, ok := a.instanceToNode[instanceUID]
	return n, ok
}

// UniqueStudyUIDs returns the distinct studies that own at least one
// series, sorted.
func (a *Aggregator) UniqueStudyUIDs() []string {
	seen := make(map[string]struct{}, len(a.studies))
	var uids []string
	for _, study := range a.seriesToStudy {
		if _, ok := seen[study]; ok {
			continue
		}
		seen[study] = struct{}{}
		uids = append(uids, study)
	}
	sort.Strings(uids)
	return uids
}

func (a *Aggregator) SeriesCount() int { return len(a.seriesToStudy) }

func (a *Aggregator) InstanceCount() int { return len(a.instanceToNode) }

// Duplicates is the number of records whose instance UID had already
// been added.
func (a *Aggregator) Duplicates() int { return a.instancesAdded - len(a.instanceToNode) }

// Build assembles the grouped tree. Studies, series and instances appear
// in the order they were first added; an instance added more than once
// carries its last node.
func (a *Aggregator) Build() *models.OutputTree {
	out := &models.OutputTree{Directory: a.directory, Studies: []*models.StudyNode{}}
	for _, studyUID := range a.studyOrder {
		proto := a.studies[studyUID]
		study := &models.StudyNode{UID: proto.UID, Tags: proto.Tags}
		for _, seriesUID := range a.seriesOrder[studyUID] {
			proto := a.series[seriesUID]
			series := &models.SeriesNode{UID: proto.UID, Tags: proto.Tags}
			for _, instanceUID := range a.instanceOrder[seriesUID] {
				series.Instances = append(series.Instances, a.instanceToNode[instanceUID])
			}
			study.Series = append(study.Series, series)
		}
		out.Studies = append(out.Studies, study)
	}
	return out
}

// Aggregate adds records in order and builds the tree.
func Aggregate(directory string, records []*models.FileRecord) (*models.OutputTree, *Aggregator) {
	a := New(directory)
	for _, rec := range records {
		a.Add(rec)
	}
	return a.Build(), a
}
