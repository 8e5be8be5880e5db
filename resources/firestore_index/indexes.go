package main

// DefineRequiredIndexes returns the composite indexes the repository queries
// depend on. Single-field indexes are created automatically by Firestore and
// are not listed here.
func DefineRequiredIndexes() []IndexConfig {
	return []IndexConfig{
		// Override audit queries filter by schedule and date range.
		{
			CollectionGroup: "overrides",
			Fields: []IndexField{
				{FieldPath: "ScheduleID", Order: "ASCENDING"},
				{FieldPath: "Date", Order: "ASCENDING"},
			},
		},
		// Member-filtered audit queries add the member to the same range.
		{
			CollectionGroup: "overrides",
			Fields: []IndexField{
				{FieldPath: "ScheduleID", Order: "ASCENDING"},
				{FieldPath: "MemberID", Order: "ASCENDING"},
				{FieldPath: "Date", Order: "ASCENDING"},
			},
		},
		// Delivery history of one logical delivery, in attempt order.
		{
			CollectionGroup: "attempts",
			Fields: []IndexField{
				{FieldPath: "DeliveryID", Order: "ASCENDING"},
				{FieldPath: "AttemptNumber", Order: "ASCENDING"},
			},
		},
		// Per-owner ledger pages, newest first.
		{
			CollectionGroup: "attempts",
			Fields: []IndexField{
				{FieldPath: "Owner", Order: "ASCENDING"},
				{FieldPath: "CreatedAt", Order: "DESCENDING"},
			},
		},
	}
}
