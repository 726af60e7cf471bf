package tenant

import (
	"time"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
	"github.com/tablevox/phone-agent-be/internal/modules/ordering/repositories"
)

// Loader resolves an inbound phone number to a restaurant snapshot.
type Loader struct {
	restaurantRepo repositories.RestaurantRepo
}

func NewLoader(restaurantRepo repositories.RestaurantRepo) *Loader {
	return &Loader{restaurantRepo: restaurantRepo}
}

// ResolveByNumber loads a fresh snapshot for the restaurant owning the
// dialed number. Unknown or inactive numbers return ErrNotFound; unavailable
// menu items and modifiers are dropped from the snapshot entirely.
func (l *Loader) ResolveByNumber(dialed string) (*models.RestaurantContext, error) {
	restaurant, err := l.restaurantRepo.GetByPhoneNumber(dialed)
	if err != nil {
		return nil, err
	}
	if !restaurant.Active {
		return nil, models.ErrNotFound
	}

	return l.Snapshot(restaurant)
}

// ResolveByID loads a fresh snapshot by restaurant id. Used when a session
// already knows its tenant and only the menu needs re-reading.
func (l *Loader) ResolveByID(restaurantID string) (*models.RestaurantContext, error) {
	restaurant, err := l.restaurantRepo.GetByID(restaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.Active {
		return nil, models.ErrNotFound
	}

	return l.Snapshot(restaurant)
}

// Snapshot builds an immutable per-turn view of the restaurant and its
// currently available menu.
func (l *Loader) Snapshot(restaurant *models.Restaurant) (*models.RestaurantContext, error) {
	items, err := l.restaurantRepo.GetMenuItems(restaurant.ID.String(), true)
	if err != nil {
		return nil, err
	}

	snapshot := &models.RestaurantContext{
		ID:             restaurant.ID,
		Name:           restaurant.Name,
		PhoneNumber:    restaurant.PhoneNumber,
		TaxRateBps:     restaurant.TaxRateBps,
		MaxAdvanceDays: restaurant.MaxAdvanceDays,
		TableCapacity:  restaurant.TableCapacity,
		OperatingDays:  restaurant.OperatingDays,
		OpensAt:        restaurant.OpensAt,
		ClosesAt:       restaurant.ClosesAt,
		Items:          make([]models.SnapshotItem, 0, len(items)),
		LoadedAt:       time.Now(),
	}

	for _, item := range items {
		mods := make([]models.Modifier, 0, len(item.Modifiers))
		for _, mod := range item.Modifiers {
			if mod.Available {
				mods = append(mods, mod)
			}
		}

		snapshot.Items = append(snapshot.Items, models.SnapshotItem{
			ID:          item.ID,
			Category:    item.Category,
			Name:        item.Name,
			Description: item.Description,
			PriceCents:  item.PriceCents,
			DietaryTags: item.DietaryTags,
			Modifiers:   mods,
		})
	}

	return snapshot, nil
}
