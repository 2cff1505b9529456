package auth

// capabilities is the total (role, action) table. Every pair is listed
// explicitly: adding a role or an action means touching every block here,
// and the totality test fails until the table is complete again. There is
// no default entry.
var capabilities = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionCreateUser: true, ActionReadUser: true, ActionUpdateUser: true, ActionDeleteUser: true, ActionExistUser: true,
		ActionCreateProject: true, ActionDeleteProject: true, ActionExistProject: true,
		ActionCreatePlace: true, ActionDeletePlace: true, ActionExistPlace: true,
		ActionCreateItem: true, ActionDeleteItem: true, ActionExistItem: true,
		ActionCreateMeasurement: true, ActionDeleteMeasurement: true, ActionExistMeasurement: true,
		ActionCreatePlaceItem: true, ActionDeletePlaceItem: true, ActionExistPlaceItem: true,
		ActionCreateMeasurementPlaceItem: true, ActionDeleteMeasurementPlaceItem: true, ActionExistMeasurementPlaceItem: true,
	},
	RoleCoordinator: {
		ActionCreateUser: false, ActionReadUser: true, ActionUpdateUser: false, ActionDeleteUser: false, ActionExistUser: true,
		ActionCreateProject: true, ActionDeleteProject: true, ActionExistProject: true,
		ActionCreatePlace: true, ActionDeletePlace: true, ActionExistPlace: true,
		ActionCreateItem: true, ActionDeleteItem: true, ActionExistItem: true,
		ActionCreateMeasurement: true, ActionDeleteMeasurement: true, ActionExistMeasurement: true,
		ActionCreatePlaceItem: true, ActionDeletePlaceItem: true, ActionExistPlaceItem: true,
		ActionCreateMeasurementPlaceItem: true, ActionDeleteMeasurementPlaceItem: true, ActionExistMeasurementPlaceItem: true,
	},
	RoleEngineer: {
		ActionCreateUser: false, ActionReadUser: false, ActionUpdateUser: false, ActionDeleteUser: false, ActionExistUser: true,
		ActionCreateProject: false, ActionDeleteProject: false, ActionExistProject: true,
		ActionCreatePlace: true, ActionDeletePlace: true, ActionExistPlace: true,
		ActionCreateItem: true, ActionDeleteItem: true, ActionExistItem: true,
		ActionCreateMeasurement: true, ActionDeleteMeasurement: true, ActionExistMeasurement: true,
		ActionCreatePlaceItem: true, ActionDeletePlaceItem: true, ActionExistPlaceItem: true,
		ActionCreateMeasurementPlaceItem: true, ActionDeleteMeasurementPlaceItem: true, ActionExistMeasurementPlaceItem: true,
	},
	RoleTechnician: {
		ActionCreateUser: false, ActionReadUser: false, ActionUpdateUser: false, ActionDeleteUser: false, ActionExistUser: true,
		ActionCreateProject: false, ActionDeleteProject: false, ActionExistProject: true,
		ActionCreatePlace: false, ActionDeletePlace: false, ActionExistPlace: true,
		ActionCreateItem: false, ActionDeleteItem: false, ActionExistItem: true,
		ActionCreateMeasurement: false, ActionDeleteMeasurement: false, ActionExistMeasurement: true,
		ActionCreatePlaceItem: false, ActionDeletePlaceItem: false, ActionExistPlaceItem: true,
		ActionCreateMeasurementPlaceItem: true, ActionDeleteMeasurementPlaceItem: false, ActionExistMeasurementPlaceItem: true,
	},
}

// Capable reports whether the role may perform the action. Both arguments
// are expected to come from the closed sets above; anything else is false.
func Capable(role Role, action Action) bool {
	return capabilities[role][action]
}
