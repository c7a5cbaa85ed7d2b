package engine

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tracktivity/internal/storage"
)

const (
	ItemTypeReward        = "character"
	ItemTypeCustomization = "customization"

	BackgroundPrice = 50

	DefaultBackgroundID    = "default"
	DefaultBackgroundColor = "#d8b9b9"
	DefaultFloorColor      = "#d8aeae"
)

type Background struct {
	ID         string
	Name       string
	Color      string
	FloorColor string
}

// Backgrounds is the purchasable background catalog, in display order.
var Backgrounds = []Background{
	{ID: "bg_blue_background", Name: "Blue Background", Color: "#93c5fd", FloorColor: "#3b82f6"},
	{ID: "bg_green_background", Name: "Green Background", Color: "#86efac", FloorColor: "#22c55e"},
	{ID: "bg_yellow_background", Name: "Yellow Background", Color: "#fde047", FloorColor: "#eab308"},
	{ID: "bg_purple_background", Name: "Purple Background", Color: "#c4b5fd", FloorColor: "#8b5cf6"},
	{ID: "bg_gray_background", Name: "Gray Background", Color: "#d1d5db", FloorColor: "#6b7280"},
}

func backgroundByID(id string) (Background, bool) {
	for _, bg := range Backgrounds {
		if bg.ID == id {
			return bg, true
		}
	}
	return Background{}, false
}

// ShopEntry is one purchasable customization. Catalog rows use an "item_"
// prefixed id; backgrounds use their catalog id.
type ShopEntry struct {
	ID              string
	Name            string
	Description     string
	Price           int
	ImageURL        string
	BackgroundColor string
	FloorColor      string
}

type ShopListing struct {
	Rewards        []storage.ShopItem
	Customizations []ShopEntry
}

type PurchaseResult struct {
	ItemID    string `json:"item_id"`
	Price     int    `json:"price"`
	CoinsLeft int    `json:"coins_left"`
}

type RewardInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Price       int    `validate:"min=1"`
}

type UpdateRewardInput struct {
	Name        *string `validate:"omitempty,min=1,max=100"`
	Description *string `validate:"omitempty,max=500"`
	Price       *int    `validate:"omitempty,min=1"`
}

type OwnedItem struct {
	ID         string
	Name       string
	Type       string
	Color      string
	FloorColor string
	IsDefault  bool
}

type OwnedItems struct {
	Avatars     []OwnedItem
	Shirts      []OwnedItem
	Pants       []OwnedItem
	Socks       []OwnedItem
	Shoes       []OwnedItem
	Backgrounds []OwnedItem
}

func catalogItemKey(id int64) string {
	return "item_" + strconv.FormatInt(id, 10)
}

// ShopItems lists the user's rewards and every customization not yet owned.
func (s *Service) ShopItems(ctx context.Context, userID string) (*ShopListing, error) {
	r := s.Repos()
	rewards, err := r.Shop.ListUserItems(ctx, userID, ItemTypeReward)
	if err != nil {
		return nil, err
	}
	shared, err := r.Shop.ListSharedItems(ctx, ItemTypeCustomization)
	if err != nil {
		return nil, err
	}
	ownedIDs, err := r.Shop.Owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(ownedIDs))
	for _, id := range ownedIDs {
		owned[id] = true
	}

	out := &ShopListing{Rewards: rewards}
	for _, it := range shared {
		key := catalogItemKey(it.ID)
		if owned[key] {
			continue
		}
		out.Customizations = append(out.Customizations, ShopEntry{
			ID:          key,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			ImageURL:    it.ImageURL,
		})
	}
	for _, bg := range Backgrounds {
		if owned[bg.ID] || bg.Color == DefaultBackgroundColor {
			continue
		}
		out.Customizations = append(out.Customizations, ShopEntry{
			ID:              bg.ID,
			Name:            bg.Name,
			Description:     "Customize your avatar background color",
			Price:           BackgroundPrice,
			BackgroundColor: bg.Color,
			FloorColor:      bg.FloorColor,
		})
	}
	return out, nil
}

// Purchase spends coins on a background, a catalog item ("item_<id>") or one
// of the user's rewards (its numeric id). Backgrounds are not equipped.
func (s *Service) Purchase(ctx context.Context, userID, itemID string) (*PurchaseResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	res := &PurchaseResult{ItemID: itemID}

	err = s.atomic(ctx, func(r *storage.Repos) error {
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}

		var ownKey string
		if strings.HasPrefix(itemID, "bg_") {
			bg, ok := backgroundByID(itemID)
			if !ok {
				return NotFoundError{Kind: "background", ID: itemID}
			}
			res.Price = BackgroundPrice
			ownKey = bg.ID
		} else {
			id, err := strconv.ParseInt(strings.TrimPrefix(itemID, "item_"), 10, 64)
			if err != nil {
				return NotFoundError{Kind: "shop item", ID: itemID}
			}
			it, err := r.Shop.GetActiveItem(ctx, userID, id)
			if err != nil {
				return err
			}
			if it == nil {
				return notFound("shop item", id)
			}
			res.Price = it.Price
			if it.ItemType == ItemTypeCustomization {
				ownKey = catalogItemKey(it.ID)
			}
		}

		if ownKey != "" {
			owned, err := r.Shop.IsOwned(ctx, userID, ownKey)
			if err != nil {
				return err
			}
			if owned {
				return InvalidStateError{Op: "purchase", Reason: "already owned"}
			}
		}
		if p.Coins < res.Price {
			return InvalidStateError{Op: "purchase", Reason: "insufficient coins"}
		}

		p.Coins -= res.Price
		if ownKey != "" {
			if _, err := r.Shop.AddOwned(ctx, userID, ownKey, s.now()); err != nil {
				return err
			}
		}
		res.CoinsLeft = p.Coins
		return r.Profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("item_purchased",
		zap.String("user", userID),
		zap.String("item_id", itemID),
		zap.Int("price", res.Price),
		zap.Int("coins_left", res.CoinsLeft),
	)
	return res, nil
}

// CreateReward defines a user reward that can be bought repeatedly.
func (s *Service) CreateReward(ctx context.Context, userID string, in RewardInput) (*CreateResult, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	owner := userID
	id, err := s.Repos().Shop.InsertItem(ctx, storage.ShopItem{
		UserID:      &owner,
		Name:        in.Name,
		Description: in.Description,
		ItemType:    ItemTypeReward,
		Price:       in.Price,
		Active:      true,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("reward_created", zap.String("user", userID), zap.Int64("reward_id", id), zap.Int("price", in.Price))
	return &CreateResult{ID: id}, nil
}

func (s *Service) UpdateReward(ctx context.Context, userID string, id int64, in UpdateRewardInput) error {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Description != nil {
		v := strings.TrimSpace(*in.Description)
		in.Description = &v
	}
	if err := validateInput(in); err != nil {
		return err
	}
	if in.Name != nil && *in.Name == "" {
		return ValidationError{Field: "name", Reason: "is required"}
	}
	if in.Price != nil && *in.Price < 1 {
		return ValidationError{Field: "price", Reason: "must be at least 1"}
	}

	return s.atomic(ctx, func(r *storage.Repos) error {
		it, err := r.Shop.GetUserItem(ctx, userID, id, ItemTypeReward)
		if err != nil {
			return err
		}
		if it == nil {
			return notFound("reward", id)
		}
		if in.Name != nil {
			it.Name = *in.Name
		}
		if in.Description != nil {
			it.Description = *in.Description
		}
		if in.Price != nil {
			it.Price = *in.Price
		}
		return r.Shop.UpdateItem(ctx, it)
	})
}

func (s *Service) DeleteReward(ctx context.Context, userID string, id int64) error {
	return s.atomic(ctx, func(r *storage.Repos) error {
		it, err := r.Shop.GetUserItem(ctx, userID, id, ItemTypeReward)
		if err != nil {
			return err
		}
		if it == nil {
			return notFound("reward", id)
		}
		return r.Shop.DeleteItem(ctx, id)
	})
}

// OwnedItems lists the default outfit plus every owned background.
func (s *Service) OwnedItems(ctx context.Context, userID string) (*OwnedItems, error) {
	ids, err := s.Repos().Shop.Owned(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &OwnedItems{
		Avatars: []OwnedItem{{ID: "default_girl", Name: "Default Girl", Type: "avatar", IsDefault: true}},
		Shirts:  []OwnedItem{{ID: "default", Name: "Default Shirt", Type: "shirt", IsDefault: true}},
		Pants:   []OwnedItem{{ID: "default", Name: "Default Pants", Type: "pants", IsDefault: true}},
		Socks:   []OwnedItem{{ID: "default", Name: "Default Socks", Type: "socks", IsDefault: true}},
		Shoes:   []OwnedItem{{ID: "default", Name: "Default Shoes", Type: "shoes", IsDefault: true}},
		Backgrounds: []OwnedItem{{
			ID:         DefaultBackgroundID,
			Name:       "Default",
			Type:       "background",
			Color:      DefaultBackgroundColor,
			FloorColor: DefaultFloorColor,
			IsDefault:  true,
		}},
	}
	for _, id := range ids {
		bg, ok := backgroundByID(id)
		if !ok {
			continue
		}
		out.Backgrounds = append(out.Backgrounds, OwnedItem{
			ID:         bg.ID,
			Name:       bg.Name,
			Type:       "background",
			Color:      bg.Color,
			FloorColor: bg.FloorColor,
		})
	}
	return out, nil
}

type AvatarInput struct {
	Background string `validate:"required"`
}

// UpdateAvatar equips a background. Only the default and owned backgrounds
// can be equipped.
func (s *Service) UpdateAvatar(ctx context.Context, userID string, in AvatarInput) (*storage.Profile, error) {
	userID, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var out *storage.Profile
	err = s.atomic(ctx, func(r *storage.Repos) error {
		p, err := s.getProfile(ctx, r, userID)
		if err != nil {
			return err
		}
		if in.Background == DefaultBackgroundID {
			p.AvatarBackground = DefaultBackgroundColor
			p.AvatarFloor = DefaultFloorColor
		} else {
			bg, ok := backgroundByID(in.Background)
			if !ok {
				return NotFoundError{Kind: "background", ID: in.Background}
			}
			owned, err := r.Shop.IsOwned(ctx, userID, bg.ID)
			if err != nil {
				return err
			}
			if !owned {
				return InvalidStateError{Op: "update avatar", Reason: "background not owned"}
			}
			p.AvatarBackground = bg.Color
			p.AvatarFloor = bg.FloorColor
		}
		out = p
		return r.Profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
