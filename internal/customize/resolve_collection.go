package customize

// Collection item fields resolve through a prioritized list of strategies,
// newest customization shape first. The list is data-driven so retiring a
// legacy tier is a one-line change; the structural guards the legacy shapes
// require are confined to their own strategies.

type itemFieldStrategy func(coll *CollectionCustomization, itemType, field string, mode Mode) *FieldCustomization

var itemFieldStrategies = []itemFieldStrategy{
	modeFields,
	legacyModeFields,
	legacyFlatFields,
	legacySelfChange,
}

// CollectionItemField resolves the effective customization for one field of
// a collection item, trying each strategy in priority order. itemType names
// the collection's item object type, used only by the legacy tiers.
func (r *Resolver) CollectionItemField(collectionField, itemType, field string, mode Mode) *FieldCustomization {
	cust, ok := r.lookup(collectionField)
	if !ok || cust.Kind != KindCollection || cust.Collection == nil {
		return nil
	}
	for _, strategy := range itemFieldStrategies {
		if resolved := strategy(cust.Collection, itemType, field, mode); resolved != nil {
			return resolved
		}
	}
	return nil
}

// CollectionDeleteHook returns the collection's delete hook, or nil.
func (r *Resolver) CollectionDeleteHook(collectionField string) DeleteHook {
	cust, ok := r.lookup(collectionField)
	if !ok || cust.Kind != KindCollection || cust.Collection == nil {
		return nil
	}
	return cust.Collection.OnDelete
}

// CollectionRenderer returns the token of a full custom collection renderer,
// or "" when the default sub-grid applies.
func (r *Resolver) CollectionRenderer(collectionField string) string {
	cust, ok := r.lookup(collectionField)
	if !ok || cust.Kind != KindCollection || cust.Collection == nil {
		return ""
	}
	return cust.Collection.Renderer
}

func itemForMode(onCreate, onEdit *ItemCustomization, mode Mode) *ItemCustomization {
	if mode == ModeCreate {
		return onCreate
	}
	return onEdit
}

// modeFields: new-style per-collection-mode fieldsCustomization.
func modeFields(coll *CollectionCustomization, _ string, field string, mode Mode) *FieldCustomization {
	item := itemForMode(coll.OnCreate, coll.OnEdit, mode)
	if item == nil {
		return nil
	}
	return item.Fields[field]
}

// legacyModeFields: legacy per-item-type structure nesting the same per-mode
// shape.
func legacyModeFields(coll *CollectionCustomization, itemType, field string, mode Mode) *FieldCustomization {
	legacy := coll.LegacyItemTypes[itemType]
	if legacy == nil {
		return nil
	}
	item := itemForMode(legacy.OnCreate, legacy.OnEdit, mode)
	if item == nil {
		return nil
	}
	return item.Fields[field]
}

// legacyFlatFields: legacy single-level fields map.
func legacyFlatFields(coll *CollectionCustomization, itemType, field string, _ Mode) *FieldCustomization {
	legacy := coll.LegacyItemTypes[itemType]
	if legacy == nil {
		return nil
	}
	return legacy.Fields[field]
}

// legacySelfChange: the bare-legacy shape where the item-type record itself
// carries an OnChange and acts as the field customization.
func legacySelfChange(coll *CollectionCustomization, itemType, _ string, _ Mode) *FieldCustomization {
	legacy := coll.LegacyItemTypes[itemType]
	if legacy == nil || legacy.OnChange == nil {
		return nil
	}
	return &FieldCustomization{OnChange: legacy.OnChange}
}
