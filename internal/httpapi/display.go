package httpapi

import "inspection-platform/internal/calls"

// StatusDisplay is presentation metadata for a status. The engine never reads it.
type StatusDisplay struct {
	Status calls.Status `json:"status"`
	Bucket calls.Bucket `json:"bucket"`
	Label  string       `json:"label"`
	// Tone is a UI hint: info, success, warning, danger, neutral.
	Tone string `json:"tone"`
}

var statusDisplay = map[calls.Status]StatusDisplay{
	calls.StatusFreshSubmission: {Label: "Fresh Submission", Tone: "info"},
	calls.StatusResubmission:    {Label: "Resubmission", Tone: "info"},
	calls.StatusReturned:        {Label: "Returned for Rectification", Tone: "warning"},

	calls.StatusVerifiedRegistered:  {Label: "Verified & Registered", Tone: "success"},
	calls.StatusIEAssignmentPending: {Label: "IE Assignment Pending", Tone: "warning"},
	calls.StatusAssignedToIE:        {Label: "Assigned to IE", Tone: "info"},
	calls.StatusScheduled:           {Label: "Inspection Scheduled", Tone: "info"},
	calls.StatusUnderInspection:     {Label: "Under Inspection", Tone: "info"},
	calls.StatusUnderLabTesting:     {Label: "Under Lab Testing", Tone: "info"},
	calls.StatusICPending:           {Label: "IC Pending", Tone: "warning"},
	calls.StatusBillingPending:      {Label: "Billing Pending", Tone: "warning"},
	calls.StatusPaymentPending:      {Label: "Payment Pending", Tone: "warning"},

	calls.StatusCompleted:              {Label: "Completed", Tone: "success"},
	calls.StatusWithdrawn:              {Label: "Withdrawn", Tone: "neutral"},
	calls.StatusCancelledChargeable:    {Label: "Cancelled (Chargeable)", Tone: "danger"},
	calls.StatusCancelledNonChargeable: {Label: "Cancelled (Non-chargeable)", Tone: "neutral"},
	calls.StatusRejectedClosed:         {Label: "Rejected & Closed", Tone: "danger"},
}

var flaggedFieldLabels = map[calls.FlaggedField]string{
	calls.FieldPODetails:         "PO Details",
	calls.FieldDeliveryPeriod:    "Delivery Period",
	calls.FieldMADetails:         "MA Details",
	calls.FieldQuantity:          "Quantity",
	calls.FieldPlaceOfInspection: "Place of Inspection",
	calls.FieldSubPODetails:      "Sub-PO Details",
}

// DisplayFor returns the display row for s, falling back to the raw value.
func DisplayFor(s calls.Status) StatusDisplay {
	d, ok := statusDisplay[s]
	if !ok {
		d = StatusDisplay{Label: string(s), Tone: "neutral"}
	}
	d.Status = s
	d.Bucket = calls.BucketOf(s)
	return d
}

type flaggedFieldDisplay struct {
	Field calls.FlaggedField `json:"field"`
	Label string             `json:"label"`
}

// displayTable lists every status grouped by bucket in lifecycle order.
func displayTable() []StatusDisplay {
	out := make([]StatusDisplay, 0, len(statusDisplay))
	for _, b := range calls.Buckets {
		for _, s := range calls.StatusesIn(b) {
			out = append(out, DisplayFor(s))
		}
	}
	return out
}

func flaggedFieldTable() []flaggedFieldDisplay {
	out := make([]flaggedFieldDisplay, 0, len(calls.FlaggableFields))
	for _, f := range calls.FlaggableFields {
		out = append(out, flaggedFieldDisplay{Field: f, Label: flaggedFieldLabels[f]})
	}
	return out
}
