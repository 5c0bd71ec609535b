package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BookingsAdmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_bookings_admitted_total",
			Help: "Bookings that passed the capacity check and were created",
		},
	)

	CapacityRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_capacity_rejections_total",
			Help: "Admissions rejected because a class or group was full",
		},
	)

	ScheduleConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_schedule_conflicts_total",
			Help: "Class inserts rejected by the calendar index",
		},
	)

	CascadedCancellations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_cascaded_cancellations_total",
			Help: "Bookings cancelled by a class cancellation cascade",
		},
	)

	AdmissionSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "scheduler_admission_seconds",
			Help: "Time spent inside the booking admission transaction",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		BookingsAdmitted,
		CapacityRejections,
		ScheduleConflicts,
		CascadedCancellations,
		AdmissionSeconds,
	)
}
