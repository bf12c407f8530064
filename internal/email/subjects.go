package email

const (
	subjectTaskAssignedFmt = "Nieuwe taak: %s"
	subjectRenewalDueFmt   = "Maandelijkse betaling te bevestigen voor %s"
	subjectDealClosedFmt   = "Deal gesloten: %s"
)
