package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Repositories bundles all repository instances
type Repositories struct {
	User         UserRepository
	Organization OrganizationRepository
	Transaction  TransactionRepository
	Subscription SubscriptionRepository
	Document     DocumentRepository
	DPOQueue     DPOQueueRepository
}

// NewRepositories creates all repositories against one DB handle
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Organization: NewOrganizationRepository(db),
		Transaction:  NewTransactionRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Document:     NewDocumentRepository(db),
		DPOQueue:     NewDPOQueueRepository(db),
	}
}

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetUserRepository returns the user repository instance
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetOrganizationRepository returns the organization repository instance
func (f *Factory) GetOrganizationRepository() OrganizationRepository {
	return f.GetRepositories().Organization
}

// GetTransactionRepository returns the transaction repository instance
func (f *Factory) GetTransactionRepository() TransactionRepository {
	return f.GetRepositories().Transaction
}

// GetSubscriptionRepository returns the subscription repository instance
func (f *Factory) GetSubscriptionRepository() SubscriptionRepository {
	return f.GetRepositories().Subscription
}

// GetDocumentRepository returns the document repository instance
func (f *Factory) GetDocumentRepository() DocumentRepository {
	return f.GetRepositories().Document
}

// GetDPOQueueRepository returns the review queue repository instance
func (f *Factory) GetDPOQueueRepository() DPOQueueRepository {
	return f.GetRepositories().DPOQueue
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
