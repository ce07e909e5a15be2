package storage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/omar16100/parsnip/internal/models"
)

// Metrics are the collectors an Instrumented backend reports to.
type Metrics struct {
	Ops      *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Records  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer, backend string) *Metrics {
	f := promauto.With(reg)
	constLabels := prometheus.Labels{"backend": backend}
	return &Metrics{
		// Labels: op, result (ok, error)
		Ops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "parsnip",
			Subsystem:   "storage",
			Name:        "operations_total",
			Help:        "Storage operations by operation and result",
			ConstLabels: constLabels,
		}, []string{"op", "result"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "parsnip",
			Subsystem:   "storage",
			Name:        "operation_duration_seconds",
			Help:        "Storage operation latency in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		// Labels: kind (entity, relation)
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "parsnip",
			Subsystem:   "storage",
			Name:        "batch_records_total",
			Help:        "Records written through batch operations",
			ConstLabels: constLabels,
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	m.Ops.WithLabelValues(op, result).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Instrumented wraps a Backend and records Prometheus metrics for every call.
type Instrumented struct {
	next Backend
	m    *Metrics
}

var _ Backend = (*Instrumented)(nil)

// Instrument decorates b. Metrics are registered on reg, labelled with name.
func Instrument(b Backend, name string, reg prometheus.Registerer) *Instrumented {
	return &Instrumented{next: b, m: newMetrics(reg, name)}
}

// Metrics returns the collectors this backend reports to.
func (i *Instrumented) Metrics() *Metrics { return i.m }

// Unwrap returns the decorated backend.
func (i *Instrumented) Unwrap() Backend { return i.next }

func (i *Instrumented) Initialize(ctx context.Context) (err error) {
	defer i.m.observe("initialize", time.Now(), &err)
	return i.next.Initialize(ctx)
}

func (i *Instrumented) Close() (err error) {
	defer i.m.observe("close", time.Now(), &err)
	return i.next.Close()
}

func (i *Instrumented) HealthCheck(ctx context.Context) (err error) {
	defer i.m.observe("health_check", time.Now(), &err)
	return i.next.HealthCheck(ctx)
}

func (i *Instrumented) SaveEntity(ctx context.Context, e *models.Entity) (err error) {
	defer i.m.observe("save_entity", time.Now(), &err)
	return i.next.SaveEntity(ctx, e)
}

func (i *Instrumented) GetEntity(ctx context.Context, projectID models.ProjectID, name string) (e *models.Entity, err error) {
	defer i.m.observe("get_entity", time.Now(), &err)
	return i.next.GetEntity(ctx, projectID, name)
}

func (i *Instrumented) GetAllEntities(ctx context.Context, projectID models.ProjectID) (es []models.Entity, err error) {
	defer i.m.observe("get_all_entities", time.Now(), &err)
	return i.next.GetAllEntities(ctx, projectID)
}

func (i *Instrumented) GetAllEntitiesAllProjects(ctx context.Context) (es []models.Entity, err error) {
	defer i.m.observe("get_all_entities_all_projects", time.Now(), &err)
	return i.next.GetAllEntitiesAllProjects(ctx)
}

func (i *Instrumented) DeleteEntity(ctx context.Context, projectID models.ProjectID, name string) (err error) {
	defer i.m.observe("delete_entity", time.Now(), &err)
	return i.next.DeleteEntity(ctx, projectID, name)
}

func (i *Instrumented) SaveRelation(ctx context.Context, r *models.Relation) (err error) {
	defer i.m.observe("save_relation", time.Now(), &err)
	return i.next.SaveRelation(ctx, r)
}

func (i *Instrumented) GetRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) (rs []models.Relation, err error) {
	defer i.m.observe("get_relations_for_entity", time.Now(), &err)
	return i.next.GetRelationsForEntity(ctx, projectID, name)
}

func (i *Instrumented) GetAllRelations(ctx context.Context, projectID models.ProjectID) (rs []models.Relation, err error) {
	defer i.m.observe("get_all_relations", time.Now(), &err)
	return i.next.GetAllRelations(ctx, projectID)
}

func (i *Instrumented) GetAllRelationsAllProjects(ctx context.Context) (rs []models.Relation, err error) {
	defer i.m.observe("get_all_relations_all_projects", time.Now(), &err)
	return i.next.GetAllRelationsAllProjects(ctx)
}

func (i *Instrumented) GetRelationsForEntityGlobal(ctx context.Context, name string) (rs []models.Relation, err error) {
	defer i.m.observe("get_relations_for_entity_global", time.Now(), &err)
	return i.next.GetRelationsForEntityGlobal(ctx, name)
}

func (i *Instrumented) DeleteRelation(ctx context.Context, projectID models.ProjectID, from, to, relationType string) (err error) {
	defer i.m.observe("delete_relation", time.Now(), &err)
	return i.next.DeleteRelation(ctx, projectID, from, to, relationType)
}

func (i *Instrumented) DeleteRelationsForEntity(ctx context.Context, projectID models.ProjectID, name string) (err error) {
	defer i.m.observe("delete_relations_for_entity", time.Now(), &err)
	return i.next.DeleteRelationsForEntity(ctx, projectID, name)
}

func (i *Instrumented) SaveProject(ctx context.Context, p *models.Project) (err error) {
	defer i.m.observe("save_project", time.Now(), &err)
	return i.next.SaveProject(ctx, p)
}

func (i *Instrumented) GetProject(ctx context.Context, name string) (p *models.Project, err error) {
	defer i.m.observe("get_project", time.Now(), &err)
	return i.next.GetProject(ctx, name)
}

func (i *Instrumented) GetProjectByID(ctx context.Context, id models.ProjectID) (p *models.Project, err error) {
	defer i.m.observe("get_project_by_id", time.Now(), &err)
	return i.next.GetProjectByID(ctx, id)
}

func (i *Instrumented) GetAllProjects(ctx context.Context) (ps []models.Project, err error) {
	defer i.m.observe("get_all_projects", time.Now(), &err)
	return i.next.GetAllProjects(ctx)
}

func (i *Instrumented) DeleteProject(ctx context.Context, name string) (err error) {
	defer i.m.observe("delete_project", time.Now(), &err)
	return i.next.DeleteProject(ctx, name)
}

func (i *Instrumented) SaveEntitiesBatch(ctx context.Context, entities []models.Entity) (err error) {
	defer func(start time.Time) {
		i.m.observe("save_entities_batch", start, &err)
		if err == nil {
			i.m.Records.WithLabelValues("entity").Add(float64(len(entities)))
		}
	}(time.Now())
	return i.next.SaveEntitiesBatch(ctx, entities)
}

func (i *Instrumented) SaveRelationsBatch(ctx context.Context, relations []models.Relation) (err error) {
	defer func(start time.Time) {
		i.m.observe("save_relations_batch", start, &err)
		if err == nil {
			i.m.Records.WithLabelValues("relation").Add(float64(len(relations)))
		}
	}(time.Now())
	return i.next.SaveRelationsBatch(ctx, relations)
}
