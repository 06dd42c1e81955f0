package services

// Provider groups every service facade the transport layer depends on.
type Provider struct {
	Donation    DonationSvcFacade
	Category    CategorySvcFacade
	Aggregation AggregationSvc
	Compliance  ComplianceSvc
	Sanitizer   SanitizerSvc
	DonorCache  DonorCacheSvc
}
