package auth

// Action names the operations subject to authorization. The vocabulary is
// fixed at build time; an action outside it resolves to VerdictActionUnknown,
// never to a reflective lookup failure.
type Action string

const (
	ActionCreateUser Action = "createUser"
	ActionReadUser   Action = "readUser"
	ActionUpdateUser Action = "updateUser"
	ActionDeleteUser Action = "deleteUser"
	ActionExistUser  Action = "existUser"

	ActionCreateProject Action = "createProject"
	ActionDeleteProject Action = "deleteProject"
	ActionExistProject  Action = "existProject"

	ActionCreatePlace Action = "createPlace"
	ActionDeletePlace Action = "deletePlace"
	ActionExistPlace  Action = "existPlace"

	ActionCreateItem Action = "createItem"
	ActionDeleteItem Action = "deleteItem"
	ActionExistItem  Action = "existItem"

	ActionCreateMeasurement Action = "createMeasurement"
	ActionDeleteMeasurement Action = "deleteMeasurement"
	ActionExistMeasurement  Action = "existMeasurement"

	ActionCreatePlaceItem Action = "createPlaceItem"
	ActionDeletePlaceItem Action = "deletePlaceItem"
	ActionExistPlaceItem  Action = "existPlaceItem"

	ActionCreateMeasurementPlaceItem Action = "createMeasurementPlaceItem"
	ActionDeleteMeasurementPlaceItem Action = "deleteMeasurementPlaceItem"
	ActionExistMeasurementPlaceItem  Action = "existMeasurementPlaceItem"
)

// Actions lists the full vocabulary.
var Actions = []Action{
	ActionCreateUser, ActionReadUser, ActionUpdateUser, ActionDeleteUser, ActionExistUser,
	ActionCreateProject, ActionDeleteProject, ActionExistProject,
	ActionCreatePlace, ActionDeletePlace, ActionExistPlace,
	ActionCreateItem, ActionDeleteItem, ActionExistItem,
	ActionCreateMeasurement, ActionDeleteMeasurement, ActionExistMeasurement,
	ActionCreatePlaceItem, ActionDeletePlaceItem, ActionExistPlaceItem,
	ActionCreateMeasurementPlaceItem, ActionDeleteMeasurementPlaceItem, ActionExistMeasurementPlaceItem,
}

// KnownAction reports whether name belongs to the fixed vocabulary.
func KnownAction(name Action) bool {
	for _, a := range Actions {
		if a == name {
			return true
		}
	}
	return false
}
